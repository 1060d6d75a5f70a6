package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/tmstreet/onboardbot/pkg/slack"
	"github.com/tmstreet/onboardbot/pkg/store"
)

// fakeSlackAPI records Web API calls and replies {"ok": true} to all of them.
type fakeSlackAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

type apiCall struct {
	method string
	body   map[string]any
}

func (f *fakeSlackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: r.URL.Path[1:], body: body})
	f.mu.Unlock()

	_, _ = w.Write([]byte(`{"ok": true}`))
}

func (f *fakeSlackAPI) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var methods []string
	for _, c := range f.calls {
		methods = append(methods, c.method)
	}
	return methods
}

func (f *fakeSlackAPI) lastCall(t *testing.T, method string) apiCall {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}

	t.Fatalf("no %q API call was made", method)
	return apiCall{}
}

// fakeSocket records Socket Mode acks and reconnection
// requests without a real connection.
type fakeSocket struct {
	sent       [][]byte
	reconnects int
}

func (f *fakeSocket) SendText(data []byte) <-chan error {
	f.sent = append(f.sent, data)

	err := make(chan error, 1)
	close(err)
	return err
}

func (f *fakeSocket) Reconnect() {
	f.reconnects++
}

func newTestBot(t *testing.T) (*bot, *fakeSlackAPI) {
	t.Helper()

	api := &fakeSlackAPI{}
	s := httptest.NewServer(api)
	t.Cleanup(s.Close)

	st, err := store.Open(t.Context(), filepath.Join(t.TempDir(), "onboarding.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	b := &bot{
		api:       slack.NewClient("xoxb-test", "xapp-test", slack.WithBaseURL(s.URL)),
		store:     st,
		checklist: testChecklist(),
	}
	return b, api
}

func TestHandleMessageAppHomeOpened(t *testing.T) {
	b, api := newTestBot(t)
	ws := &fakeSocket{}

	b.handleMessage(t.Context(), ws, []byte(`{
		"type": "events_api",
		"envelope_id": "e-1",
		"payload": {"event": {"type": "app_home_opened", "user": "U111", "tab": "home"}}
	}`))

	if len(ws.sent) != 1 {
		t.Fatalf("len(acks) = %d, want 1", len(ws.sent))
	}
	if got, want := string(ws.sent[0]), `{"envelope_id":"e-1"}`; got != want {
		t.Errorf("ack = %s, want %s", got, want)
	}

	call := api.lastCall(t, "views.publish")
	if got := call.body["user_id"]; got != "U111" {
		t.Errorf("views.publish user_id = %v, want %q", got, "U111")
	}

	// The user's rows must have been seeded.
	done, total, err := b.store.Progress(t.Context(), "U111")
	if err != nil {
		t.Fatalf("store.Progress() error = %v", err)
	}
	if done != 0 || total != b.checklist.Len() {
		t.Errorf("store.Progress() = %d/%d, want 0/%d", done, total, b.checklist.Len())
	}
}

func TestHandleMessageTeamJoin(t *testing.T) {
	b, api := newTestBot(t)
	ws := &fakeSocket{}

	b.handleMessage(t.Context(), ws, []byte(`{
		"type": "events_api",
		"envelope_id": "e-2",
		"payload": {"event": {"type": "team_join", "user": {"id": "U222", "name": "newbie"}}}
	}`))

	want := []string{"chat.postMessage", "views.publish"}
	if got := api.methods(); !reflect.DeepEqual(got, want) {
		t.Fatalf("API calls = %v, want %v", got, want)
	}

	call := api.lastCall(t, "chat.postMessage")
	if got := call.body["channel"]; got != "U222" {
		t.Errorf("chat.postMessage channel = %v, want %q", got, "U222")
	}
	if got := call.body["text"]; got != welcomeMessage {
		t.Errorf("chat.postMessage text = %v, want the welcome message", got)
	}
}

func TestHandleMessageBlockActions(t *testing.T) {
	b, api := newTestBot(t)
	ws := &fakeSocket{}
	ctx := t.Context()

	// The user already completed "coffee_chat" (group "Culture")
	// and "nda" (group "Paperwork").
	ids := b.checklist.IDs()
	if err := b.store.EnsureUser(ctx, "U333", ids); err != nil {
		t.Fatal(err)
	}
	if err := b.store.SetDone(ctx, "U333", ids, map[string]bool{"coffee_chat": true, "nda": true}); err != nil {
		t.Fatal(err)
	}

	// The user unchecks "nda" and checks "contract" in the
	// "Paperwork" group. The "Culture" group must be untouched.
	b.handleMessage(ctx, ws, []byte(`{
		"type": "interactive",
		"envelope_id": "e-3",
		"payload": {
			"type": "block_actions",
			"user": {"id": "U333"},
			"actions": [{
				"action_id": "task_toggle_paperwork",
				"selected_options": [{"value": "contract"}]
			}]
		}
	}`))

	if len(ws.sent) != 1 {
		t.Fatalf("len(acks) = %d, want 1", len(ws.sent))
	}

	done, err := b.store.DoneSet(ctx, "U333")
	if err != nil {
		t.Fatalf("store.DoneSet() error = %v", err)
	}
	want := map[string]bool{"contract": true, "coffee_chat": true}
	if !reflect.DeepEqual(done, want) {
		t.Errorf("store.DoneSet() = %v, want %v", done, want)
	}

	api.lastCall(t, "views.publish") // Fails the test if the view wasn't refreshed.
}

func TestHandleMessageSlashCommand(t *testing.T) {
	b, api := newTestBot(t)
	ws := &fakeSocket{}

	b.handleMessage(t.Context(), ws, []byte(`{
		"type": "slash_commands",
		"envelope_id": "e-4",
		"accepts_response_payload": true,
		"payload": {"command": "/onboard", "user_id": "U444"}
	}`))

	if len(ws.sent) != 1 {
		t.Fatalf("len(acks) = %d, want 1", len(ws.sent))
	}

	ack := map[string]any{}
	if err := json.Unmarshal(ws.sent[0], &ack); err != nil {
		t.Fatalf("failed to parse ack: %v", err)
	}
	if _, ok := ack["payload"]; !ok {
		t.Error("slash command ack has no response payload")
	}

	call := api.lastCall(t, "views.publish")
	if got := call.body["user_id"]; got != "U444" {
		t.Errorf("views.publish user_id = %v, want %q", got, "U444")
	}
}

func TestHandleMessageDisconnect(t *testing.T) {
	b, api := newTestBot(t)
	ws := &fakeSocket{}

	b.handleMessage(t.Context(), ws, []byte(`{"type": "disconnect", "reason": "refresh_requested"}`))

	// Disconnect announcements trigger a proactive
	// reconnection, nothing else.
	if ws.reconnects != 1 {
		t.Errorf("reconnections = %d, want 1", ws.reconnects)
	}
	if len(ws.sent) != 0 {
		t.Errorf("len(acks) = %d, want 0", len(ws.sent))
	}
	if methods := api.methods(); len(methods) != 0 {
		t.Errorf("API calls = %v, want none", methods)
	}
}

func TestHandleMessageNoSideEffects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "hello",
			data: `{"type": "hello", "num_connections": 1}`,
		},
		{
			name: "disconnect",
			data: `{"type": "disconnect", "reason": "refresh_requested"}`,
		},
		{
			name: "unknown_type",
			data: `{"type": "mystery", "envelope_id": "e-5"}`,
		},
		{
			name: "invalid_json",
			data: "{",
		},
		{
			name: "event_without_user",
			data: `{"type": "events_api", "envelope_id": "e-6", "payload": {"event": {"type": "app_home_opened"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api := newTestBot(t)
			b.handleMessage(t.Context(), &fakeSocket{}, []byte(tt.data))

			for _, method := range api.methods() {
				if method == "views.publish" || method == "chat.postMessage" {
					t.Errorf("unexpected %q API call", method)
				}
			}
		})
	}
}

func TestHandleMessageIgnoresUnknownAction(t *testing.T) {
	b, api := newTestBot(t)

	b.handleMessage(t.Context(), &fakeSocket{}, []byte(`{
		"type": "interactive",
		"envelope_id": "e-7",
		"payload": {
			"type": "block_actions",
			"user": {"id": "U555"},
			"actions": [{"action_id": "unrelated_button", "selected_options": []}]
		}
	}`))

	if methods := api.methods(); len(methods) != 0 {
		t.Errorf("API calls = %v, want none", methods)
	}
}
