// Command fetch-assets downloads the tools listed in the payload manifest
// and writes them where the assets package embeds them from.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/dmikushin/apkext/internal/assets"
	"github.com/dmikushin/apkext/internal/ziputil"
	"github.com/dmikushin/apkext/pkg/logging"
	"github.com/dmikushin/apkext/pkg/payload/operations"
	_ "github.com/dmikushin/apkext/pkg/payload/operations/bundle"
	_ "github.com/dmikushin/apkext/pkg/payload/operations/compress"
)

type fetcher struct {
	manifest string
	out      string
	force    bool
	timeout  time.Duration

	client    *http.Client
	logger    hclog.Logger
	downloads map[string]string
	scratch   string
}

func main() {
	f := &fetcher{}
	cmd := &cobra.Command{
		Use:           "fetch-assets",
		Short:         "Download the tool payloads embedded into apkext",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&f.manifest, "manifest", "payload/manifest.yaml", "Path to the payload manifest")
	cmd.Flags().StringVar(&f.out, "out", "payload", "Directory the payloads are written to")
	cmd.Flags().BoolVar(&f.force, "force", false, "Download even when the payload already exists")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "Timeout per download")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (f *fetcher) run(ctx context.Context) error {
	f.logger = logging.NewLogger("fetch-assets", "info", os.Stderr)
	f.client = &http.Client{Timeout: f.timeout}
	f.downloads = map[string]string{}

	data, err := os.ReadFile(f.manifest)
	if err != nil {
		return err
	}
	m, err := assets.ParseManifest(data)
	if err != nil {
		return fmt.Errorf("%s: %w", f.manifest, err)
	}

	f.scratch, err = os.MkdirTemp("", "apkext-fetch-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(f.scratch)

	for _, tool := range m.Tools {
		dest := filepath.Join(f.out, filepath.FromSlash(tool.Payload))
		if _, err := os.Stat(dest); err == nil && !f.force {
			f.logger.Info("⏭️ Payload present", "tool", tool.Name, "payload", tool.Payload)
			continue
		}

		src, err := f.source(ctx, m, tool)
		if err != nil {
			return fmt.Errorf("%s: %w", tool.Name, err)
		}
		if err := f.write(tool, src, dest); err != nil {
			return fmt.Errorf("%s: %w", tool.Name, err)
		}
		f.logger.Info("✅ Payload written", "tool", tool.Name, "version", tool.Version, "payload", tool.Payload)
	}
	return nil
}

// source returns the downloaded file a payload is built from, following
// "from" to another tool's download.
func (f *fetcher) source(ctx context.Context, m *assets.Manifest, tool assets.ToolPayload) (string, error) {
	if tool.From != "" {
		origin, ok := m.Tool(tool.From)
		if !ok {
			return "", fmt.Errorf("unknown tool %q", tool.From)
		}
		return f.source(ctx, m, origin)
	}
	if tool.URL == "" {
		return "", errors.New("no url")
	}
	if path, ok := f.downloads[tool.Name]; ok {
		return path, nil
	}

	path := filepath.Join(f.scratch, tool.Name+filepath.Ext(tool.URL))
	if err := f.download(ctx, tool.URL, path, tool.SHA256); err != nil {
		return "", err
	}
	f.downloads[tool.Name] = path
	return path, nil
}

func (f *fetcher) download(ctx context.Context, url, dest, want string) error {
	f.logger.Info("🌐 Downloading", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), resp.Body)
	if err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if want != "" && !strings.EqualFold(want, got) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", url, got, want)
	}
	f.logger.Debug("📥 Downloaded", "bytes", n, "sha256", got)
	return out.Close()
}

func (f *fetcher) write(tool assets.ToolPayload, src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	ops, ok := tool.Chain()
	if !ok {
		return copyFile(src, dest)
	}

	staging, err := os.MkdirTemp(f.scratch, tool.Name+"-")
	if err != nil {
		return err
	}
	n, err := ziputil.ExtractPrefix(src, tool.Include, staging)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no entries under %q in %s", tool.Include, filepath.Base(src))
	}
	f.logger.Debug("📦 Bundling", "files", n, "chain", operations.ChainString(ops))

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := operations.Create(out, ops, staging); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
