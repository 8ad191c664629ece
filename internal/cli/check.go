package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kolah/portico/internal/loader"
)

func CheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <spec-file>...",
		Short: "Validate OpenAPI specification files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := checkFile(cmd, path); err != nil {
			cmd.Printf("%s: %s\n", path, err)
			failed++
			continue
		}
		cmd.Printf("%s: OK\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d specification files failed validation", failed, len(args))
	}
	return nil
}

func checkFile(cmd *cobra.Command, path string) error {
	doc, err := loader.ParseFile(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := loader.Info(doc, name)
	ops := loader.Operations(doc, zap.NewNop())
	cmd.Printf("%s: %s v%s, %d operations\n", path, info.Title, info.Version, len(ops))

	// Deep schema validation covers OpenAPI 3.x; Swagger 2.0 documents
	// stop at the structural checks above.
	if _, ok := doc.Lookup("swagger"); ok {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading spec file: %w", err)
	}

	spec, err := libopenapi.NewDocument(data)
	if err != nil {
		return fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	v, errs := validator.NewValidator(spec)
	if len(errs) > 0 {
		return fmt.Errorf("building validator: %w", errs[0])
	}

	valid, findings := v.ValidateDocument()
	if !valid {
		for _, f := range findings {
			cmd.Printf("%s: %s\n", path, f.Message)
			if f.Reason != "" {
				cmd.Printf("%s:   reason: %s\n", path, f.Reason)
			}
			if f.HowToFix != "" {
				cmd.Printf("%s:   fix: %s\n", path, f.HowToFix)
			}
		}
		return fmt.Errorf("%d schema violations", len(findings))
	}

	return nil
}
