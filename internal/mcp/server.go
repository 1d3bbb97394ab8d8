// Package mcp exposes the unpack and pack pipelines as Model Context
// Protocol tools served over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dmikushin/apkext/internal/version"
	"github.com/dmikushin/apkext/pkg/apk"
)

// Tool names advertised to clients.
const (
	ToolUnpack = "unpack_apk"
	ToolPack   = "pack_apk"
)

// Unpacker runs the unpack pipeline. *apk.Extractor implements it.
type Unpacker interface {
	Unpack(ctx context.Context, archive string) (*apk.Result, error)
}

// Packer runs the pack pipeline. *apk.Builder implements it.
type Packer interface {
	Pack(ctx context.Context, sourceDir, output string) error
}

type UnpackArgs struct {
	ApkPath string `json:"apk_path" jsonschema:"Path to the APK file to unpack"`
}

type PackArgs struct {
	UnpackedDir string `json:"unpacked_dir" jsonschema:"Path to the extraction root or the apktool output directory"`
	OutputApk   string `json:"output_apk" jsonschema:"Path for the output APK file"`
}

// Server serves the pipelines to one MCP client.
type Server struct {
	server   *mcp.Server
	unpacker Unpacker
	packer   Packer
	logger   hclog.Logger
}

// NewServer registers the tools backed by unpacker and packer.
func NewServer(unpacker Unpacker, packer Packer, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		server:   mcp.NewServer(&mcp.Implementation{Name: "apkext", Version: version.Version}, nil),
		unpacker: unpacker,
		packer:   packer,
		logger:   logger.Named("mcp"),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolUnpack,
		Description: "Unpack an APK file to extract resources, smali and decompiled Java sources",
	}, s.handleUnpack)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolPack,
		Description: "Pack an unpacked APK directory back into an APK file",
	}, s.handlePack)

	return s
}

// Run serves requests on stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("🚀 MCP server ready on stdio", "tools", []string{ToolUnpack, ToolPack})
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleUnpack(ctx context.Context, _ *mcp.CallToolRequest, args UnpackArgs) (*mcp.CallToolResult, any, error) {
	archive, err := absolute(args.ApkPath)
	if err != nil {
		return failure("Failed to unpack APK: %v", err), nil, nil
	}
	s.logger.Debug("🔧 unpack_apk", "apk_path", archive)

	result, err := s.unpacker.Unpack(ctx, archive)
	if err != nil {
		return failure("Failed to unpack APK: %v", err), nil, nil
	}

	target := result.Target
	var b strings.Builder
	fmt.Fprintf(&b, "Successfully unpacked %s\n\nExtracted to:\n", archive)
	fmt.Fprintf(&b, "- Resources and smali: %s\n", target.Unpacked())
	if st, ok := result.Stage(apk.StageConvert); ok && st.Status == apk.StatusSucceeded {
		fmt.Fprintf(&b, "- Converted JAR: %s\n", target.Jar())
	}
	if st, ok := result.Stage(apk.StageDecompile); ok && st.Status == apk.StatusSucceeded {
		fmt.Fprintf(&b, "- Decompiled Java source: %s\n", target.Sources())
	}
	if warnings := result.Warnings(); len(warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %v\n", w)
		}
	}
	return text(b.String()), nil, nil
}

func (s *Server) handlePack(ctx context.Context, _ *mcp.CallToolRequest, args PackArgs) (*mcp.CallToolResult, any, error) {
	src, err := absolute(args.UnpackedDir)
	if err != nil {
		return failure("Failed to pack APK: %v", err), nil, nil
	}
	out, err := absolute(args.OutputApk)
	if err != nil {
		return failure("Failed to pack APK: %v", err), nil, nil
	}
	s.logger.Debug("🔧 pack_apk", "unpacked_dir", src, "output_apk", out)

	if err := s.packer.Pack(ctx, src, out); err != nil {
		return failure("Failed to pack APK: %v", err), nil, nil
	}
	return text("Successfully packed APK: " + out), nil, nil
}

func absolute(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	return filepath.Abs(path)
}

func text(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: msg}}}
}

func failure(format string, args ...any) *mcp.CallToolResult {
	res := text(fmt.Sprintf(format, args...))
	res.IsError = true
	return res
}
