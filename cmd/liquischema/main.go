package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/tordrt/liquischema"
	"github.com/tordrt/liquischema/internal/changelog"
	"github.com/tordrt/liquischema/internal/config"
	"github.com/tordrt/liquischema/internal/db"
	"github.com/tordrt/liquischema/internal/formatter"
	"github.com/tordrt/liquischema/internal/metadata"
	"github.com/tordrt/liquischema/internal/platform"
)

const formatXML = "xml"

// cli carries the state shared by the subcommands of one invocation
type cli struct {
	flags     *config.Flags
	cfg       *config.Config
	logger    hclog.Logger
	outputDir string
	format    string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "liquischema",
		Short: "Generate Liquibase changelogs from schema metadata",
		Long: `Liquischema builds the desired database schema from YAML entity metadata and
writes the changes needed to reach it as a Liquibase XML changelog, either for
an empty database or against a live PostgreSQL, MySQL, or SQLite database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	c.flags = config.RegisterFlags(rootCmd.PersistentFlags())

	changelogCmd := &cobra.Command{
		Use:   "changelog [entity...]",
		Short: "Write a changelog creating the whole schema",
		RunE:  c.runChangeLog,
	}
	changelogCmd.Flags().StringVarP(&c.outputDir, "output-dir", "d", "", "Write one file per change set plus a master changelog to this directory")

	diffCmd := &cobra.Command{
		Use:   "diff [entity...]",
		Short: "Write a changelog migrating a live database to the schema",
		RunE:  c.runDiff,
	}
	diffCmd.Flags().StringVarP(&c.outputDir, "output-dir", "d", "", "Write one file per change set plus a master changelog to this directory")
	diffCmd.Flags().StringVarP(&c.format, "format", "f", formatXML, "Output format: xml, text, or markdown")

	rootCmd.AddCommand(changelogCmd, diffCmd)
	return rootCmd
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.flags.ConfigPath(), c.flags)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "liquischema",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func (c *cli) runChangeLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if c.cfg.HasDatabase() {
		c.logger.Warn("database flags are ignored by the changelog command, use diff to compare against a database")
	}
	p, err := c.cfg.ResolvePlatform()
	if err != nil {
		return err
	}
	reg, entities, err := c.loadMetadata(args)
	if err != nil {
		return err
	}

	tool := liquischema.New(p,
		liquischema.WithMetadata(reg),
		liquischema.WithOptions(c.cfg.ChangelogOptions()),
		liquischema.WithLogger(c.logger),
	)
	doc, err := tool.ChangeLog(ctx, nil, entities)
	if err != nil {
		return err
	}
	return c.writeChangeLog(cmd, doc)
}

func (c *cli) runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if c.format != formatXML && c.outputDir != "" {
		return fmt.Errorf("--output-dir requires the xml format")
	}
	url, err := c.cfg.ResolveDatabaseURL()
	if err != nil {
		return err
	}
	reg, entities, err := c.loadMetadata(args)
	if err != nil {
		return err
	}

	database, err := db.Open(ctx, url, c.cfg.Schema)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("failed to close database connection", "error", err)
		}
	}()

	p := database.Platform
	if c.cfg.Platform != "" {
		if p, err = platform.ByName(c.cfg.Platform); err != nil {
			return err
		}
		if p.Name() != database.Platform.Name() {
			return fmt.Errorf("platform %s does not match the %s database", p.Name(), database.Platform.Name())
		}
	}
	c.logger.Info("connected to database", "platform", database.Platform.Name())

	tool := liquischema.New(p,
		liquischema.WithMetadata(reg),
		liquischema.WithIntrospector(database),
		liquischema.WithOptions(c.cfg.ChangelogOptions()),
		liquischema.WithLogger(c.logger),
	)

	if c.format != formatXML {
		diff, err := tool.Diff(ctx, nil, entities)
		if err != nil {
			return err
		}
		return c.writeOutput(cmd, func(w io.Writer) error {
			f, err := formatter.New(c.format, w)
			if err != nil {
				return err
			}
			return f.Format(diff)
		})
	}

	doc, err := tool.DiffChangeLog(ctx, nil, entities)
	if err != nil {
		return err
	}
	return c.writeChangeLog(cmd, doc)
}

// loadMetadata loads the metadata registry and resolves the entity names
// given on the command line. No names means every entity.
func (c *cli) loadMetadata(names []string) (*metadata.Registry, []metadata.Entity, error) {
	if c.cfg.Metadata == "" {
		return nil, nil, fmt.Errorf("--metadata must be specified")
	}
	reg, err := metadata.Load(c.cfg.Metadata)
	if err != nil {
		return nil, nil, err
	}

	var entities []metadata.Entity
	for _, name := range names {
		e, ok := reg.Entity(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown entity: %s", name)
		}
		entities = append(entities, e)
	}
	c.logger.Debug("loaded metadata", "path", c.cfg.Metadata, "entities", len(reg.AllMetadata()))
	return reg, entities, nil
}

func (c *cli) writeChangeLog(cmd *cobra.Command, doc *changelog.Document) error {
	if c.outputDir != "" {
		if c.cfg.Output != "" {
			return fmt.Errorf("cannot use both --output-dir and --output flags")
		}
		written, err := formatter.NewMultiFileFormatter(c.outputDir).Format(doc)
		if err != nil {
			return fmt.Errorf("failed to write changelog: %w", err)
		}
		c.logger.Info("wrote changelog", "dir", c.outputDir, "files", len(written))
		return nil
	}

	return c.writeOutput(cmd, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
}

func (c *cli) writeOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	writer := cmd.OutOrStdout()
	if c.cfg.Output != "" {
		f, err := os.Create(c.cfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				c.logger.Warn("failed to close output file", "error", err)
			}
		}()
		writer = f
	}

	if err := write(writer); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
