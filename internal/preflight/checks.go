package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"vidtools/internal/config"
)

// CheckDirectoryAccess reports whether path is a directory the server can
// list and write into, along with the free space left on its filesystem.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: path + ": " + fmt.Sprintf(format, args...)}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: %v", err)
	}
	detail := path + ": read/write ok"
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err == nil {
		detail += ", " + humanize.IBytes(st.Bavail*uint64(st.Bsize)) + " free"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckTranscriptionAPI verifies the configured hosted provider is reachable
// and accepts the key. WhisperX runs locally and is skipped.
func CheckTranscriptionAPI(ctx context.Context, cfg *config.Config) Result {
	t := cfg.Transcription
	switch t.Provider {
	case config.ProviderOpenAI:
		return checkAuthorizedGet(ctx, "OpenAI API", t.OpenAIBaseURL+"/v1/models", "Authorization", "Bearer "+t.OpenAIAPIKey, t.OpenAIAPIKey)
	case config.ProviderAssemblyAI:
		return checkAuthorizedGet(ctx, "AssemblyAI API", t.AssemblyAIBaseURL+"/v2/transcript?limit=1", "Authorization", t.AssemblyAIAPIKey, t.AssemblyAIAPIKey)
	default:
		return Result{Name: "Transcription API", Passed: true, Detail: "local provider"}
	}
}

func checkAuthorizedGet(ctx context.Context, name, endpoint, header, value, key string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set(header, value)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return fmt.Sprintf("auth check failed (%v)", err)
}
