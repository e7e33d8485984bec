package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/importer"
	"github.com/meudinheiro/meudinheiro/internal/importlog"
)

func newImportCommand(dir *string) *cobra.Command {
	var accountID int64
	var fromDir bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank statement into an account",
		Long: "Import a delimited bank statement into an account. With --dir every CSV\n" +
			"in the configured import directory is imported and moved to processed/.",
		Args: func(cmd *cobra.Command, args []string) error {
			if fromDir {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*dir)
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := p.withLogger(cmd.Context())
			if fromDir {
				return runImportDir(ctx, cmd.OutOrStdout(), p, accountID)
			}
			return runImportFile(ctx, cmd.OutOrStdout(), p, args[0], accountID)
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account to import into (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().BoolVar(&fromDir, "dir", false, "import every CSV in the import directory")

	return cmd
}

func runImportFile(ctx context.Context, out io.Writer, p *project, path string, accountID int64) error {
	res, err := p.importer().ImportFile(ctx, path, accountID)
	entry := importlog.FromResult(filepath.Base(path), accountID, res, err)
	if logErr := importlog.Append(p.root, []importlog.Entry{entry}); logErr != nil {
		p.log.Warn().Err(logErr).Msg("writing import log")
	}
	if err != nil {
		return err
	}
	printResult(out, filepath.Base(path), res)
	return nil
}

func runImportDir(ctx context.Context, out io.Writer, p *project, accountID int64) error {
	dir := p.importDir()
	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", dir)
		return nil
	}

	im := p.importer()
	var (
		entries []importlog.Entry
		errs    []error
	)
	for _, f := range files {
		res, err := im.ImportFile(ctx, f.Path, accountID)
		entries = append(entries, importlog.FromResult(f.Name, accountID, res, err))
		if err != nil {
			// Left in place so it can be fixed and retried.
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		printResult(out, f.Name, res)
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			errs = append(errs, err)
		}
	}

	if err := importlog.Append(p.root, entries); err != nil {
		p.log.Warn().Err(err).Msg("writing import log")
	}
	return errors.Join(errs...)
}

func printResult(out io.Writer, name string, res importer.Result) {
	fmt.Fprintf(out, "%s: %d imported, %d duplicates skipped", name, res.Imported, res.Skipped)
	if res.Failed > 0 {
		fmt.Fprintf(out, ", %d rows failed", res.Failed)
	}
	fmt.Fprintf(out, " (%s)\n", res.Mapping)
}
