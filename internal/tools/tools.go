// Package tools wraps the Java based collaborators (apktool, dex2jar and the
// procyon decompiler) as uniform Tool values on top of the process runner.
package tools

import (
	"context"
	"os"
	"runtime"

	"github.com/dmikushin/apkext/internal/config"
	"github.com/dmikushin/apkext/internal/runner"
)

// Tool names as they appear in logs and errors.
const (
	NameApktool    = "Apktool"
	NameDex2Jar    = "dex2jar"
	NameDecompiler = "procyon"
)

// Executor runs a single command. *runner.Runner implements it.
type Executor interface {
	Run(ctx context.Context, cmd runner.Command) (runner.Outcome, error)
}

// Tool is an external program invoked with pipeline specific arguments.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, args ...string) (runner.Outcome, error)
}

// JarTool runs an executable jar on the configured Java runtime.
type JarTool struct {
	name string
	jar  string
	cfg  config.ToolConfiguration
	exec Executor
}

// NewJarTool creates a JarTool for jar.
func NewJarTool(name, jar string, cfg config.ToolConfiguration, exec Executor) *JarTool {
	return &JarTool{name: name, jar: jar, cfg: cfg, exec: exec}
}

func (t *JarTool) Name() string {
	return t.name
}

// Jar returns the jar's path.
func (t *JarTool) Jar() string {
	return t.jar
}

// Invoke runs `java <opts> -jar <jar> args...`.
func (t *JarTool) Invoke(ctx context.Context, args ...string) (runner.Outcome, error) {
	argv := t.cfg.JavaArgs()
	argv = append(argv, "-jar", t.jar)
	argv = append(argv, args...)

	return t.exec.Run(ctx, runner.Command{
		Tool: t.name,
		Path: t.cfg.Java.Path,
		Args: argv,
		Env:  javaEnv(t.cfg),
	})
}

// Apktool is the apktool jar bound to the cache's framework directory.
type Apktool struct {
	*JarTool
	frameworkDir string
}

// NewApktool creates the apktool wrapper.
func NewApktool(cfg config.ToolConfiguration, exec Executor) *Apktool {
	return &Apktool{
		JarTool:      NewJarTool(NameApktool, cfg.ApktoolJar, cfg, exec),
		frameworkDir: cfg.FrameworkDir,
	}
}

// Invoke runs apktool with `--frame-path <framework>` placed right after
// the subcommand in args[0], so framework files never leave the cache.
func (t *Apktool) Invoke(ctx context.Context, args ...string) (runner.Outcome, error) {
	if len(args) == 0 || t.frameworkDir == "" {
		return t.JarTool.Invoke(ctx, args...)
	}
	if err := os.MkdirAll(t.frameworkDir, 0o755); err != nil {
		return runner.Outcome{Tool: t.name}, err
	}

	withFramework := make([]string, 0, len(args)+2)
	withFramework = append(withFramework, args[0], "--frame-path", t.frameworkDir)
	withFramework = append(withFramework, args[1:]...)
	return t.JarTool.Invoke(ctx, withFramework...)
}

// ScriptTool runs a launcher script shipped with a tool, such as
// d2j-dex2jar.sh. Windows batch files go through cmd /C.
type ScriptTool struct {
	name   string
	script string
	goos   string
	cfg    config.ToolConfiguration
	exec   Executor
}

// NewScriptTool creates a ScriptTool for the host OS.
func NewScriptTool(name, script string, cfg config.ToolConfiguration, exec Executor) *ScriptTool {
	return &ScriptTool{name: name, script: script, goos: runtime.GOOS, cfg: cfg, exec: exec}
}

func (t *ScriptTool) Name() string {
	return t.name
}

// Invoke runs the script with args. JAVA_HOME is exported when known so
// the script finds the same runtime as the jar tools.
func (t *ScriptTool) Invoke(ctx context.Context, args ...string) (runner.Outcome, error) {
	cmd := runner.Command{
		Tool: t.name,
		Path: t.script,
		Args: args,
		Env:  javaEnv(t.cfg),
	}
	if t.goos == "windows" {
		cmd.Path = "cmd"
		cmd.Args = append([]string{"/C", t.script}, args...)
	}
	return t.exec.Run(ctx, cmd)
}

// Toolset groups the tools used by the pipelines.
type Toolset struct {
	Apktool    Tool
	Dex2Jar    Tool
	Decompiler Tool
}

// NewToolset binds every tool to cfg and exec.
func NewToolset(cfg config.ToolConfiguration, exec Executor) Toolset {
	return Toolset{
		Apktool:    NewApktool(cfg, exec),
		Dex2Jar:    NewScriptTool(NameDex2Jar, cfg.Dex2Jar, cfg, exec),
		Decompiler: NewJarTool(NameDecompiler, cfg.DecompilerJar, cfg, exec),
	}
}

func javaEnv(cfg config.ToolConfiguration) []string {
	if cfg.Java.Home == "" {
		return nil
	}
	return []string{"JAVA_HOME=" + cfg.Java.Home}
}
