package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TriageEvent is a diagnostic record reported to the platform's plugin-log
// sink when the integration fails. It has no persistence beyond transmission.
type TriageEvent struct {
	GameID        string         `json:"gameId"`
	FrameworkID   string         `json:"frameworkId"`
	PluginVersion string         `json:"pluginVersion"`
	ServerIP      string         `json:"serverIp"`
	ErrorMessage  string         `json:"errorMessage"`
	Trace         string         `json:"trace"`
	Metadata      map[string]any `json:"metadata"`
	StoreName     string         `json:"storeName"`
	StoreURL      string         `json:"storeUrl"`
}

// TriageReporter posts diagnostic events to the plugin-log endpoint. The
// sink is unauthenticated; failures to report are logged and dropped, never
// propagated to the caller's request path.
type TriageReporter struct {
	URL  string
	HTTP *http.Client
	Log  zerolog.Logger
}

// Report sends the event. A nil reporter is a no-op so callers can leave the
// sink unconfigured in tests.
func (t *TriageReporter) Report(ctx context.Context, event TriageEvent) {
	if t == nil || t.URL == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		t.Log.Error().Err(err).Msg("encode triage event")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		t.Log.Error().Err(err).Msg("build triage request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Log.Error().Err(err).Msg("post triage event")
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	t.Log.Info().Str("message", event.ErrorMessage).Int("status", resp.StatusCode).Msg("triage event reported")
}
