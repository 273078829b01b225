package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/pipelinestudio/internal/app"
	"github.com/specialistvlad/pipelinestudio/internal/catalog"
	"github.com/specialistvlad/pipelinestudio/internal/pipeline"
	"github.com/specialistvlad/pipelinestudio/internal/templatestore"
)

func newTemplatesCommand(s streams, o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage plugin and pipeline templates",
		Long: `Templates are stored per namespace and pipeline artifact name. Plugin templates
are preset plugin configurations; pipeline templates are whole export
documents.`,
	}
	cmd.AddCommand(
		newTemplatesListCommand(s, o),
		newTemplatesDeleteCommand(s, o),
		newTemplatesSavePluginCommand(s, o),
		newTemplatesSavePipelineCommand(s, o),
	)
	return cmd
}

// templateType resolves the pipeline artifact name templates are filed
// under: the --artifact flag, then the configured artifact, then the first
// artifact of the catalog.
func templateType(cmd *cobra.Command, a *app.App, raw string) (string, error) {
	cfg := a.Config()
	want, err := cfg.Artifact()
	if raw != "" {
		want, err = pipeline.ParseArtifact(raw)
	}
	if err != nil {
		return "", usageError(err)
	}
	if want.Name != "" {
		return want.Name, nil
	}
	known, err := a.Catalog().LoadArtifacts(cmd.Context())
	if err != nil {
		return "", err
	}
	if len(known) == 0 {
		return "", errors.New("the catalog offers no pipeline artifacts")
	}
	return known[0].Name, nil
}

type templateListing struct {
	Plugins   []pipeline.PluginTemplate `json:"plugins"`
	Pipelines []pipelineListing         `json:"pipelines"`
}

type pipelineListing struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func newTemplatesListCommand(s streams, o *rootOptions) *cobra.Command {
	var (
		typeFlag     string
		artifactFlag string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the templates of a pipeline artifact",
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
			ttype, err := templateType(cmd, a, artifactFlag)
			if err != nil {
				return err
			}
			store, err := a.Templates()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ns := a.Config().Namespace
			listing := templateListing{Plugins: []pipeline.PluginTemplate{}, Pipelines: []pipelineListing{}}
			for _, t := range types {
				list, err := store.ListPluginTemplates(ctx, ns, ttype, t)
				if err != nil {
					return err
				}
				listing.Plugins = append(listing.Plugins, list...)
			}
			pipelines, err := store.ListPipelineTemplates(ctx, ns, ttype)
			if err != nil {
				return err
			}
			for _, p := range pipelines {
				listing.Pipelines = append(listing.Pipelines, pipelineListing{Name: p.Name, Description: p.Description})
			}

			if asJSON {
				return writeJSON(s.out, listing)
			}
			for _, t := range listing.Plugins {
				lock := ""
				if t.Lock {
					lock = " (locked)"
				}
				fmt.Fprintf(s.out, "plugin   %-10s %s -> %s%s\n", t.PluginType, t.TemplateName, t.PluginName, lock)
			}
			for _, p := range listing.Pipelines {
				fmt.Fprintf(s.out, "pipeline %s\n", p.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Only list plugin templates of this plugin type.")
	cmd.Flags().StringVarP(&artifactFlag, "artifact", "a", "", "Pipeline artifact as name[:version[:scope]]. Defaults to the configured artifact.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTemplatesDeleteCommand(s streams, o *rootOptions) *cobra.Command {
	var (
		typeFlag     string
		artifactFlag string
	)
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a plugin template",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := pipeline.ParsePluginType(typeFlag)
			if err != nil {
				return usageError(err)
			}
			a, err := o.newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			ttype, err := templateType(cmd, a, artifactFlag)
			if err != nil {
				return err
			}
			store, err := a.Templates()
			if err != nil {
				return err
			}
			if err := store.DeletePluginTemplate(cmd.Context(), a.Config().Namespace, ttype, t, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "deleted %s template %q\n", t, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Plugin type of the template.")
	cmd.Flags().StringVarP(&artifactFlag, "artifact", "a", "", "Pipeline artifact as name[:version[:scope]]. Defaults to the configured artifact.")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// parseProperty splits key=value. Values that parse as JSON keep their JSON
// type; anything else is a string.
func parseProperty(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid property %q: expected key=value", raw)
	}
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return key, value, nil
	}
	return key, v, nil
}

func newTemplatesSavePluginCommand(s streams, o *rootOptions) *cobra.Command {
	var (
		typeFlag     string
		pluginFlag   string
		artifactFlag string
		props        []string
		lock         bool
	)
	cmd := &cobra.Command{
		Use:   "save-plugin NAME",
		Short: "Save a plugin template from a catalog plugin and property overrides",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := pipeline.ParsePluginType(typeFlag)
			if err != nil {
				return usageError(err)
			}
			overrides := make(map[string]any, len(props))
			for _, p := range props {
				k, v, err := parseProperty(p)
				if err != nil {
					return usageError(err)
				}
				overrides[k] = v
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
			d, ok := a.Catalog().Descriptor(pluginFlag, t)
			if !ok {
				return fmt.Errorf("%s plugin %q: %w", t, pluginFlag, catalog.ErrNotFound)
			}

			tmpl := pipeline.PluginTemplate{
				Namespace:    a.Config().Namespace,
				TemplateType: artifact.Name,
				PluginType:   t,
				TemplateName: args[0],
				PluginName:   d.Name,
				Artifact:     d.Artifact,
				Properties:   d.Clone().Properties,
				InputSchema:  d.InputSchema,
				OutputSchema: d.OutputSchema,
				Lock:         lock,
			}
			for k, v := range overrides {
				tmpl.Properties[k] = v
			}
			store, err := a.Templates()
			if err != nil {
				return err
			}
			if err := store.PutPluginTemplate(cmd.Context(), tmpl); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "saved %s template %q for %s\n", t, tmpl.TemplateName, artifact.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Plugin type of the template.")
	cmd.Flags().StringVarP(&pluginFlag, "plugin", "p", "", "Catalog plugin the template configures.")
	cmd.Flags().StringVarP(&artifactFlag, "artifact", "a", "", "Pipeline artifact as name[:version[:scope]]. Defaults to the configured artifact.")
	cmd.Flags().StringArrayVar(&props, "set", nil, "Property override as key=value. May be repeated.")
	cmd.Flags().BoolVar(&lock, "lock", false, "Lock the properties of nodes created from the template.")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("plugin")
	return cmd
}

func newTemplatesSavePipelineCommand(s streams, o *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "save-pipeline NAME FILE",
		Short: "Save a pipeline document as a pipeline template",
		Long: `Save-pipeline validates FILE like the validate command and stores its
normalized form under the document's pipeline artifact name.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			a, err := o.newApp(cmd, s)
			if err != nil {
				return err
			}
			defer a.Close()
			g, c, err := readGraph(cmd, a, path)
			if err != nil {
				return err
			}
			data, err := c.ExportJSON(g)
			if err != nil {
				return documentError(path, err)
			}
			store, err := a.Templates()
			if err != nil {
				return err
			}
			err = store.PutPipelineTemplate(cmd.Context(), templatestore.PipelineTemplate{
				Namespace:    a.Config().Namespace,
				TemplateType: g.Artifact.Name,
				Name:         name,
				Description:  description,
				Config:       data,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "saved pipeline template %q for %s\n", name, g.Artifact.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the template.")
	return cmd
}
