package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/benjaminschreck/go-md2docx/pkg/md2docx"
	"github.com/benjaminschreck/go-md2docx/pkg/md2docx/inspect"
	"github.com/benjaminschreck/go-md2docx/pkg/md2docx/lint"
)

var version = "0.1.0"

// Exit code for findings, as opposed to failures.
const exitInvalid = 2

func sourcesFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "sources",
		Aliases: []string{"s"},
		Usage:   "Path to the YAML source list",
		Value:   "references/sources.yaml",
		Sources: cli.EnvVars("MD2DOCX_SOURCES"),
	}
}

func strictFlag(usage string) *cli.BoolFlag {
	return &cli.BoolFlag{Name: "strict", Usage: usage}
}

// configure applies the global flags on top of the environment configuration.
func configure(cmd *cli.Command) *md2docx.Config {
	cfg := md2docx.ConfigFromEnvironment()
	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	md2docx.SetGlobalConfig(cfg)
	return cfg
}

func runAssemble(ctx context.Context, cmd *cli.Command) error {
	cfg := configure(cmd)
	if cmd.Bool("strict") {
		cfg.StrictReferences = true
	}

	meta, err := md2docx.LoadMetadata(cmd.String("meta"))
	if err != nil {
		return err
	}
	sources, err := md2docx.LoadSources(cmd.String("sources"))
	if err != nil {
		return err
	}

	if input := cmd.String("markdown"); input != "" {
		report, err := lint.CheckFile(input, lint.Options{
			Sources:           sources,
			SourcesPath:       cmd.String("sources"),
			Strict:            true,
			ReferencesHeading: cfg.ReferencesHeading,
		})
		if err != nil {
			return err
		}
		if !report.OK() {
			fmt.Fprintln(os.Stderr, report)
			return cli.Exit("markdown validation failed", exitInvalid)
		}
		meta = meta.Merge(report.Metadata)
	}

	output := cmd.String("output")
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return md2docx.NewDocumentError("create output directory", output, err)
	}

	report, err := md2docx.Assemble(md2docx.Options{
		TemplatePath: cmd.String("template"),
		BodyPath:     cmd.String("body"),
		OutputPath:   output,
		Metadata:     meta,
		Sources:      sources,
		Config:       cfg,
	})
	if err != nil {
		return err
	}

	for _, ref := range report.UnresolvedRefs {
		fmt.Fprintf(os.Stderr, "warning: unresolved cross-reference %s\n", ref)
	}
	for _, id := range report.DanglingRelationships {
		fmt.Fprintf(os.Stderr, "warning: dangling relationship %s\n", id)
	}
	fmt.Printf("OK: wrote %s (%d figures, %d tables, %d citations, %d footnotes)\n",
		output, report.Figures, report.Tables, report.Citations, report.Footnotes)
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	cfg := configure(cmd)

	input := cmd.Args().First()
	if input == "" {
		return cli.Exit("missing markdown file argument", exitInvalid)
	}
	sourcesPath := cmd.String("sources")
	sources, err := md2docx.LoadSources(sourcesPath)
	if err != nil {
		return err
	}

	report, err := lint.CheckFile(input, lint.Options{
		Sources:           sources,
		SourcesPath:       sourcesPath,
		Strict:            cmd.Bool("strict"),
		ReferencesHeading: cfg.ReferencesHeading,
	})
	if err != nil {
		return err
	}
	fmt.Println(report)
	if !report.OK() {
		return cli.Exit("", exitInvalid)
	}
	return nil
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	cfg := configure(cmd)

	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("missing package argument", exitInvalid)
	}
	result, err := inspect.InspectFile(path, cfg)
	if err != nil {
		return err
	}
	fmt.Print(result)
	if !result.Clean() {
		return cli.Exit("residual markers found", exitInvalid)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "md2docx",
		Usage:   "Link a converted body package into a styled DOCX template",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error, off); overrides MD2DOCX_LOG_LEVEL",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "assemble",
				Usage:  "Merge a body package into a template package",
				Action: runAssemble,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "template",
						Aliases:  []string{"t"},
						Usage:    "Styled template package",
						Required: true,
						Sources:  cli.EnvVars("MD2DOCX_TEMPLATE"),
					},
					&cli.StringFlag{
						Name:     "body",
						Aliases:  []string{"b"},
						Usage:    "Converter-generated body package",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output package",
						Value:   "build/report.docx",
					},
					&cli.StringFlag{
						Name:    "meta",
						Aliases: []string{"m"},
						Usage:   "YAML cover metadata (title, subtitle, author, date)",
						Value:   "meta.yaml",
					},
					&cli.StringFlag{
						Name:  "markdown",
						Usage: "Authored markdown to validate first; its front matter fills missing metadata",
					},
					sourcesFlag(),
					strictFlag("Fail on cross-references to undeclared ids"),
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate markdown directives, references and citations",
				ArgsUsage: "<input.md>",
				Action:    runValidate,
				Flags: []cli.Flag{
					sourcesFlag(),
					strictFlag("Fail on warnings"),
				},
			},
			{
				Name:      "inspect",
				Usage:     "Print the outline of a package and report residual markers",
				ArgsUsage: "<package.docx>",
				Action:    runInspect,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("md2docx version %s\n", version)
					return nil
				},
			},
		},
	}

	// Exit codes from cli.Exit are handled inside Run.
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
