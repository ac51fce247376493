// Package diagnose checks a local avatar setup before an agent is started.
package diagnose

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"avatar-bridge/internal/domain/avatar"
)

// DefaultAvatarID is the community avatar used when none is configured.
const DefaultAvatarID = "A33NZN6384"

// Status of a single check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Inputs is the environment under test.
type Inputs struct {
	BithumanAPISecret string
	BithumanAPIURL    string
	AvatarID          string
	AvatarModel       string
	LiveKitURL        string
	LiveKitAPIKey     string
	LiveKitAPISecret  string
	OpenAIAPIKey      string
}

// HealthFunc checks the bitHuman API.
type HealthFunc func(ctx context.Context) error

// Result is the outcome of one named check.
type Result struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Messages []string `json:"messages,omitempty"`
}

func (r *Result) warn(format string, args ...any) {
	if r.Status == StatusPass {
		r.Status = StatusWarn
	}
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...any) {
	r.Status = StatusFail
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Report collects all check results.
type Report struct {
	Results []Result `json:"results"`
}

// Passed is false when any check failed. Warnings do not fail a report.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return false
		}
	}
	return true
}

// ExitCode is 0 for a passing report and 1 otherwise.
func (r Report) ExitCode() int {
	if r.Passed() {
		return 0
	}
	return 1
}

// Write prints a human readable summary.
func (r Report) Write(w io.Writer) {
	fmt.Fprintln(w, "avatar setup diagnostics")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	for _, res := range r.Results {
		fmt.Fprintf(w, "[%s] %s\n", res.Status, res.Name)
		for _, msg := range res.Messages {
			fmt.Fprintf(w, "       %s\n", msg)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if r.Passed() {
		fmt.Fprintln(w, "all checks passed")
	} else {
		fmt.Fprintln(w, "some checks failed; fix the issues above and run again")
	}
}

// Run executes every check in a fixed order. health may be nil, in which
// case API reachability is not checked.
func Run(ctx context.Context, in Inputs, health HealthFunc) Report {
	return Report{Results: []Result{
		CheckOpenAI(in),
		CheckLiveKit(in),
		CheckAvatar(in),
		CheckBithumanAPI(ctx, in, health),
	}}
}

// CheckOpenAI only warns; the bridge itself never calls OpenAI.
func CheckOpenAI(in Inputs) Result {
	res := Result{Name: "OpenAI API", Status: StatusPass}
	key := strings.TrimSpace(in.OpenAIAPIKey)
	switch {
	case key == "":
		res.warn("OPENAI_API_KEY is not set; voice agents that use OpenAI will not start")
	case !strings.HasPrefix(key, "sk-"):
		res.warn("OPENAI_API_KEY format looks unusual")
	}
	return res
}

// CheckLiveKit validates key, secret and URL shape.
func CheckLiveKit(in Inputs) Result {
	res := Result{Name: "LiveKit config", Status: StatusPass}

	key := strings.TrimSpace(in.LiveKitAPIKey)
	switch {
	case key == "":
		res.fail("LIVEKIT_API_KEY missing")
	case !strings.HasPrefix(key, "API"):
		res.fail("LIVEKIT_API_KEY should start with 'API'")
	}
	if strings.TrimSpace(in.LiveKitAPISecret) == "" {
		res.fail("LIVEKIT_API_SECRET missing")
	}

	raw := strings.TrimSpace(in.LiveKitURL)
	if raw == "" {
		res.fail("LIVEKIT_URL missing")
		return res
	}
	u, err := url.Parse(raw)
	if err != nil {
		res.fail("LIVEKIT_URL is not a valid URL: %v", err)
		return res
	}
	switch u.Scheme {
	case "wss":
	case "ws":
		if isLocalHost(u.Hostname()) {
			res.warn("LIVEKIT_URL uses ws:// which is only suitable for a local server")
		} else {
			res.fail("LIVEKIT_URL should start with 'wss://'")
		}
	default:
		res.fail("LIVEKIT_URL should start with 'wss://'")
	}
	return res
}

func isLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}

// CheckAvatar validates the local model file when one is set, otherwise the
// cloud avatar id.
func CheckAvatar(in Inputs) Result {
	res := Result{Name: "Avatar", Status: StatusPass}
	if model := strings.TrimSpace(in.AvatarModel); model != "" {
		if err := avatar.ValidateModelPath(model); err != nil {
			res.fail("%v", err)
		} else {
			res.Messages = append(res.Messages, "model "+model)
		}
		return res
	}

	id := strings.TrimSpace(in.AvatarID)
	if id == "" {
		id = DefaultAvatarID
	}
	res.Messages = append(res.Messages, "avatar id "+id)
	if id == DefaultAvatarID {
		res.warn("using the default avatar id; set BITHUMAN_AVATAR_ID to pick another")
	}
	return res
}

// CheckBithumanAPI verifies the secret and, when health is set, reachability.
func CheckBithumanAPI(ctx context.Context, in Inputs, health HealthFunc) Result {
	res := Result{Name: "bitHuman API", Status: StatusPass}
	creds := avatar.Credentials{APISecret: in.BithumanAPISecret}
	warnings, err := creds.Validate()
	if err != nil {
		res.fail("BITHUMAN_API_SECRET not set")
		return res
	}
	for _, w := range warnings {
		res.warn("%s", w)
	}

	if health == nil {
		return res
	}
	if err := health(ctx); err != nil {
		res.fail("API unreachable: %v", err)
		return res
	}
	res.Messages = append(res.Messages, "API is reachable and accepted the secret")
	return res
}
