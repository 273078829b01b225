package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/pipelinestudio/internal/app"
	"github.com/specialistvlad/pipelinestudio/internal/codec"
	"github.com/specialistvlad/pipelinestudio/internal/nodeid"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
)

// documentOptions are shared by the commands that read a pipeline document.
type documentOptions struct {
	offline bool
}

func (d *documentOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&d.offline, "offline", false, "Skip the plugin catalog and the artifact check.")
}

// open builds the app of an online command. It returns nil when offline.
func (d *documentOptions) open(cmd *cobra.Command, s streams, o *rootOptions) (*app.App, error) {
	if d.offline {
		return nil, nil
	}
	return o.newApp(cmd, s)
}

// readGraph reads and imports the document at path. With an app the
// artifact is checked against its catalog; without one only the document
// itself is validated.
func readGraph(cmd *cobra.Command, a *app.App, path string) (pipeline.Graph, *codec.Codec, error) {
	raw, err := codec.ReadFile(path)
	if err != nil {
		return pipeline.Graph{}, nil, err
	}

	if a == nil {
		c := codec.New(nodeid.Sequential())
		doc, err := c.Decode(raw)
		if err != nil {
			return pipeline.Graph{}, nil, documentError(path, err)
		}
		g, err := c.Build(doc)
		if err != nil {
			return pipeline.Graph{}, nil, documentError(path, err)
		}
		return g, c, nil
	}

	known, err := a.Catalog().LoadArtifacts(cmd.Context())
	if err != nil {
		return pipeline.Graph{}, nil, err
	}
	c := a.Codec()
	g, err := c.Import(raw, known)
	if err != nil {
		return pipeline.Graph{}, nil, documentError(path, err)
	}
	return g, c, nil
}

// closeApp closes a, which may be nil.
func closeApp(a *app.App) {
	if a != nil {
		_ = a.Close()
	}
}

// documentError reports an import failure as exit code 1 with its kind.
func documentError(path string, err error) error {
	kind := codec.Kind(err)
	if kind == "" {
		return err
	}
	return &ExitError{Code: 1, Message: fmt.Sprintf("%s: %s: %v", path, kind, err)}
}

func newValidateCommand(s streams, o *rootOptions) *cobra.Command {
	var d documentOptions
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a pipeline document can be imported",
		Long: `Validate parses FILE, checks its structure and connections, and verifies that
its artifact is offered by the plugin catalog. Files ending in .gz are
decompressed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := d.open(cmd, s, o)
			if err != nil {
				return err
			}
			defer closeApp(a)
			g, c, err := readGraph(cmd, a, args[0])
			if err != nil {
				return err
			}
			doc, err := c.Export(g)
			if err != nil {
				return documentError(args[0], err)
			}
			sum, err := codec.Fingerprint(doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s: valid (artifact %s, %d stages, %d connections)\nfingerprint: %s\n",
				args[0], g.Artifact, len(g.Nodes), len(g.Connections), sum)
			return nil
		},
	}
	d.bind(cmd)
	return cmd
}

func newNormalizeCommand(s streams, o *rootOptions) *cobra.Command {
	var (
		d      documentOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Rewrite a pipeline document in canonical export form",
		Long: `Normalize imports FILE and exports it again. Missing connections are replaced by
the linear chain, unknown fields are dropped and the stages are written in
source, transforms, sinks order.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := d.open(cmd, s, o)
			if err != nil {
				return err
			}
			defer closeApp(a)
			g, c, err := readGraph(cmd, a, args[0])
			if err != nil {
				return err
			}
			data, err := c.ExportJSON(g)
			if err != nil {
				return documentError(args[0], err)
			}
			if output == "" {
				_, err := s.out.Write(data)
				return err
			}
			if err := codec.WriteFile(output, data); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(s.out, "wrote %s\n", output)
			return nil
		},
	}
	d.bind(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout. A .gz suffix compresses it.")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newArtifactsCommand(s streams, o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List the pipeline artifacts offered by the catalog",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			artifacts, err := a.Catalog().LoadArtifacts(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(s.out, artifacts)
			}
			for _, artifact := range artifacts {
				fmt.Fprintln(s.out, artifact)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// loadCatalog loads the plugins of the artifact named by raw, or of the
// configured default artifact when raw is empty.
func loadCatalog(cmd *cobra.Command, a *app.App, raw string) (pipeline.Artifact, error) {
	ctx := cmd.Context()
	known, err := a.Catalog().LoadArtifacts(ctx)
	if err != nil {
		return pipeline.Artifact{}, err
	}
	if len(known) == 0 {
		return pipeline.Artifact{}, errors.New("the catalog offers no pipeline artifacts")
	}

	cfg := a.Config()
	want, err := cfg.Artifact()
	if raw != "" {
		want, err = pipeline.ParseArtifact(raw)
	}
	if err != nil {
		return pipeline.Artifact{}, usageError(err)
	}
	artifact := known[0]
	if !want.IsZero() {
		match, ok := pipeline.MatchArtifact(known, want)
		if !ok {
			return pipeline.Artifact{}, &codec.UnknownArtifactError{Artifact: want}
		}
		artifact = match
	}
	if err := a.Catalog().Load(ctx, artifact); err != nil {
		return pipeline.Artifact{}, err
	}
	return artifact, nil
}

// pluginTypes parses the --type flag. Empty means every type.
func pluginTypes(raw string) ([]pipeline.PluginType, error) {
	if raw == "" {
		return pipeline.PluginTypes, nil
	}
	t, err := pipeline.ParsePluginType(raw)
	if err != nil {
		return nil, usageError(err)
	}
	return []pipeline.PluginType{t}, nil
}

type pluginListing struct {
	Type     pipeline.PluginType `json:"type"`
	Name     string              `json:"name"`
	Label    string              `json:"label"`
	Version  string              `json:"version"`
	Versions []string            `json:"versions"`
	Icon     string              `json:"icon"`
}

func newPluginsCommand(s streams, o *rootOptions) *cobra.Command {
	var (
		typeFlag     string
		artifactFlag string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins available to a pipeline artifact",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := pluginTypes(typeFlag)
			if err != nil {
				return err
			}
			a, err := o.newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			artifact, err := loadCatalog(cmd, a, artifactFlag)
			if err != nil {
				return err
			}

			var out []pluginListing
			for _, t := range types {
				for _, d := range a.Catalog().Plugins(t) {
					out = append(out, pluginListing{
						Type:     t,
						Name:     d.Name,
						Label:    d.DisplayLabel(),
						Version:  d.Artifact.Version,
						Versions: a.Catalog().Versions(d.Name, t),
						Icon:     pipeline.IconFor(d.Name),
					})
				}
			}
			if asJSON {
				if out == nil {
					out = []pluginListing{}
				}
				return writeJSON(s.out, out)
			}
			fmt.Fprintf(s.out, "artifact: %s\n", artifact)
			for _, p := range out {
				fmt.Fprintf(s.out, "%-10s %-24s %s\n", p.Type, p.Name, p.Version)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Plugin type: source, transform or sink. Empty lists every type.")
	cmd.Flags().StringVarP(&artifactFlag, "artifact", "a", "", "Pipeline artifact as name[:version[:scope]]. Defaults to the configured artifact.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
