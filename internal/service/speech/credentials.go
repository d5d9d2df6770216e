package speech

import (
	"fmt"
	"strings"

	speechmodel "github.com/ekorkmaz/voxboard/internal/model/speech"
)

// resolveCredentials returns the normalized app id and access token, with a
// clear error when either is missing.
func resolveCredentials(cfg *speechmodel.Config) (string, string, error) {
	if cfg == nil {
		return "", "", fmt.Errorf("speech engine config is not initialized")
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)

	if appID == "" || token == "" {
		return "", "", fmt.Errorf("speech engine config is missing AppID or AccessToken")
	}

	return appID, token, nil
}
