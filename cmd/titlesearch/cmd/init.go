package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/titlesearch/configs"
	"github.com/Aman-CERP/titlesearch/internal/config"
	"github.com/Aman-CERP/titlesearch/internal/ui"
)

// mcpServerName is the key written to .mcp.json.
const mcpServerName = "titlesearch"

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the root of .mcp.json. Unknown top-level keys are not
// preserved.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

type initOptions struct {
	dir   string
	force bool
	print bool
	mcp   bool
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a project config file",
		Long: `Init writes a commented ` + config.ProjectConfigName + ` with every setting at its
default. An existing file is kept unless --force is given, in which case it
is backed up first.

With --mcp, .mcp.json is created or updated so MCP clients start
'titlesearch serve --transport stdio' in this directory.`,
		Example: `  titlesearch init
  titlesearch init --force --mcp
  titlesearch init --print > config.yaml`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.print {
				_, err := fmt.Fprint(cmd.OutOrStdout(), configs.ConfigTemplate)
				return err
			}
			return runInit(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Project directory")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite existing files (a backup is kept)")
	cmd.Flags().BoolVar(&opts.print, "print", false, "Print the template instead of writing it")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Register the MCP server in .mcp.json")

	return cmd
}

func runInit(cmd *cobra.Command, a *app, opts initOptions) error {
	out := ui.NewPrinter(cmd.OutOrStdout())

	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}

	path := a.configPath
	if path == "" {
		path = filepath.Join(root, config.ProjectConfigName)
	}
	if err := writeConfigTemplate(out, path, opts.force); err != nil {
		return err
	}

	if opts.mcp {
		if err := configureMCPJSON(out, root, opts.force); err != nil {
			return err
		}
	}
	return nil
}

func writeConfigTemplate(out *ui.Printer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warningf("%s already exists (use --force to overwrite)", path)
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return err
		}
		out.Successf("Backed up %s to %s", path, backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	out.Successf("Created %s", path)
	return nil
}

// configureMCPJSON creates or updates .mcp.json in root.
func configureMCPJSON(out *ui.Printer, root string, force bool) error {
	mcpPath := filepath.Join(root, ".mcp.json")

	existing := MCPConfig{MCPServers: make(map[string]MCPServerConfig)}
	if data, err := os.ReadFile(mcpPath); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to parse existing .mcp.json: %w", err)
		}
		if existing.MCPServers == nil {
			existing.MCPServers = make(map[string]MCPServerConfig)
		}
		if _, ok := existing.MCPServers[mcpServerName]; ok && !force {
			out.Warning("titlesearch already configured in .mcp.json")
			return nil
		}
	}

	bin, err := findBinary()
	if err != nil {
		return err
	}
	existing.MCPServers[mcpServerName] = MCPServerConfig{
		Type:    "stdio",
		Command: bin,
		Args:    []string{"serve", "--transport", "stdio"},
		Cwd:     root,
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal .mcp.json: %w", err)
	}
	if err := os.WriteFile(mcpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write .mcp.json: %w", err)
	}
	out.Successf("Registered MCP server in %s", mcpPath)
	return nil
}

// findBinary returns the running executable, or titlesearch on PATH.
func findBinary() (string, error) {
	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			return real, nil
		}
		return exe, nil
	}
	path, err := exec.LookPath("titlesearch")
	if err != nil {
		return "", fmt.Errorf("titlesearch not found in PATH: %w", err)
	}
	return path, nil
}
