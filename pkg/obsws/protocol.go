package obsws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/germanamz/mixbridge/pkg/mixer"
)

// Request types.
const (
	reqGetAuthRequired         = "GetAuthRequired"
	reqAuthenticate            = "Authenticate"
	reqGetSourcesList          = "GetSourcesList"
	reqGetVolume               = "GetVolume"
	reqGetMute                 = "GetMute"
	reqSetVolume               = "SetVolume"
	reqSetMute                 = "SetMute"
	reqGetSourceFilters        = "GetSourceFilters"
	reqSetSourceFilterSettings = "SetSourceFilterSettings"
	reqGetSceneList            = "GetSceneList"
	reqSetCurrentScene         = "SetCurrentScene"
)

// Event (update) types.
const (
	updSourceVolumeChanged    = "SourceVolumeChanged"
	updSourceMuteStateChanged = "SourceMuteStateChanged"
	updSwitchScenes           = "SwitchScenes"
)

// envelope holds the routing fields shared by every incoming message.
type envelope struct {
	MessageID  string `json:"message-id"`
	UpdateType string `json:"update-type"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// RequestError is returned when the remote answers a request with
// status "error".
type RequestError struct {
	Request string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("obsws: %s: %s", e.Request, e.Message)
}

type authRequiredResponse struct {
	AuthRequired bool   `json:"authRequired"`
	Challenge    string `json:"challenge"`
	Salt         string `json:"salt"`
}

type sourcesListResponse struct {
	Sources []struct {
		Name   string `json:"name"`
		TypeID string `json:"typeId"`
		Type   string `json:"type"`
	} `json:"sources"`
}

type volumeResponse struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

type muteResponse struct {
	Name  string `json:"name"`
	Muted bool   `json:"muted"`
}

type filtersResponse struct {
	Filters []struct {
		Enabled  bool           `json:"enabled"`
		Type     string         `json:"type"`
		Name     string         `json:"name"`
		Settings map[string]any `json:"settings"`
	} `json:"filters"`
}

type sceneListResponse struct {
	CurrentScene string `json:"current-scene"`
	Scenes       []struct {
		Name string `json:"name"`
	} `json:"scenes"`
}

type sourceVolumeChanged struct {
	SourceName string  `json:"sourceName"`
	Volume     float64 `json:"volume"`
}

type sourceMuteStateChanged struct {
	SourceName string `json:"sourceName"`
	Muted      bool   `json:"muted"`
}

type switchScenes struct {
	SceneName string `json:"scene-name"`
}

// authResponse computes the Authenticate payload:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])

	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

// decodeEvent maps an update message onto a mixer event. It returns false
// for update types the sync layer does not consume.
func decodeEvent(updateType string, raw json.RawMessage) (mixer.Event, bool, error) {
	switch updateType {
	case updSourceVolumeChanged:
		var m sourceVolumeChanged
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false, err
		}
		return mixer.VolumeChanged{Source: m.SourceName, Volume: m.Volume}, true, nil

	case updSourceMuteStateChanged:
		var m sourceMuteStateChanged
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false, err
		}
		return mixer.MuteChanged{Source: m.SourceName, Muted: m.Muted}, true, nil

	case updSwitchScenes:
		var m switchScenes
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false, err
		}
		return mixer.SceneSwitched{Scene: m.SceneName}, true, nil

	default:
		return nil, false, nil
	}
}

// Description returns the remote's description of the failure.
func (e *RequestError) Description() string { return e.Message }
