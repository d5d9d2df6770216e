package speech

import "testing"

func TestFragmentsFromUtterances(t *testing.T) {
	var resp asrServerMessage
	resp.Result.Utterances = []struct {
		Text     string `json:"text"`
		Definite bool   `json:"definite"`
	}{
		{Text: "open the door", Definite: true},
		{Text: "and then", Definite: false},
		{Text: "   ", Definite: false},
	}

	fragments := fragmentsFromMessage(resp, false)
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	if !fragments[0].Final || fragments[0].Text != "open the door" {
		t.Fatalf("unexpected definite fragment: %+v", fragments[0])
	}
	if fragments[1].Final {
		t.Fatalf("interim utterance must not be finalized: %+v", fragments[1])
	}
}

func TestFragmentsFinalizedOnClosingPacket(t *testing.T) {
	var resp asrServerMessage
	resp.Result.Utterances = []struct {
		Text     string `json:"text"`
		Definite bool   `json:"definite"`
	}{
		{Text: "goodbye", Definite: false},
	}

	fragments := fragmentsFromMessage(resp, true)
	if len(fragments) != 1 || !fragments[0].Final {
		t.Fatalf("closing packet must finalize all fragments: %+v", fragments)
	}
}

func TestFragmentsFallBackToResultText(t *testing.T) {
	var resp asrServerMessage
	resp.Result.Text = "plain text result"

	fragments := fragmentsFromMessage(resp, false)
	if len(fragments) != 1 || fragments[0].Text != "plain text result" || fragments[0].Final {
		t.Fatalf("unexpected fragments: %+v", fragments)
	}
}

func TestFragmentsEmptyResult(t *testing.T) {
	var resp asrServerMessage
	if got := fragmentsFromMessage(resp, false); got != nil {
		t.Fatalf("expected nil for empty result, got %+v", got)
	}
}
