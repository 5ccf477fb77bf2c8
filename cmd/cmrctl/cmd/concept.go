package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

// conceptFlags select how a metadata file is read.
type conceptFlags struct {
	format         string
	identifierPath string
}

func (f *conceptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "metadata format (echo10, umm); inferred from the file extension when empty")
	cmd.Flags().StringVar(&f.identifierPath, "identifier-path", "", "dotted path to the concept's identifier in the metadata")
}

// load reads a metadata file into a Concept. Files ending in .json are UMM-JSON
// unless --format says otherwise.
func (f *conceptFlags) load(typeArg, path string) (cmr.Concept, error) {
	conceptType, err := cmr.ParseConceptType(typeArg)
	if err != nil {
		return cmr.Concept{}, err
	}

	name := f.format
	if name == "" {
		name = "echo10"
		if strings.EqualFold(filepath.Ext(path), ".json") {
			name = "umm"
		}
	}
	format, err := cmr.ParseFormat(name)
	if err != nil {
		return cmr.Concept{}, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // metadata path from trusted CLI argument
	if err != nil {
		return cmr.Concept{}, fmt.Errorf("reading metadata file: %w", err)
	}

	return cmr.Concept{
		Type:           conceptType,
		Format:         format,
		Metadata:       data,
		IdentifierPath: f.identifierPath,
	}, nil
}

func metadataCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "metadata <concept-id>",
		Short: "Print the metadata document of a concept",
		Example: `  cmrctl metadata G1200000001-LPDAAC_ECS
  cmrctl metadata C1200000001-LPDAAC_ECS --format umm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := cmr.ParseFormat(format)
			if err != nil {
				return err
			}
			body, err := a.client.GetConcept(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(body); err != nil {
				return err
			}
			if len(body) > 0 && body[len(body)-1] != '\n' {
				_, err = fmt.Fprintln(out)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "echo10", "metadata format (echo10, umm)")

	return cmd
}

func validateCmd(a *app) *cobra.Command {
	var flags conceptFlags

	cmd := &cobra.Command{
		Use:   "validate <collection|granule> <file>",
		Short: "Validate a metadata file with CMR without ingesting it",
		Example: `  cmrctl validate granule granule.xml --provider LPDAAC_ECS
  cmrctl validate collection collection.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			concept, err := flags.load(args[0], args[1])
			if err != nil {
				return err
			}
			identifier, err := concept.Identifier()
			if err != nil {
				return err
			}

			report := conceptReport{Identifier: identifier, Result: "valid"}
			if err := a.client.ValidateConcept(cmd.Context(), concept); err != nil {
				invalid, ok := validationReport(report, err)
				if !ok {
					return err
				}
				if perr := a.printReport(cmd, invalid); perr != nil {
					return perr
				}
				return err
			}
			return a.printReport(cmd, report)
		},
	}
	flags.register(cmd)

	return cmd
}

func ingestCmd(a *app) *cobra.Command {
	var (
		flags      conceptFlags
		revisionID int
	)

	cmd := &cobra.Command{
		Use:   "ingest <collection|granule> <file>",
		Short: "Validate and ingest a metadata file",
		Long: "Validates the metadata with CMR and, when it passes, creates or\n" +
			"updates the concept under its identifier. Nothing is written when\n" +
			"validation fails.",
		Example: `  cmrctl ingest granule granule.xml --provider LPDAAC_ECS
  cmrctl ingest collection collection.json --revision-id 12`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			concept, err := flags.load(args[0], args[1])
			if err != nil {
				return err
			}

			var opts []cmr.IngestOption
			if revisionID > 0 {
				opts = append(opts, cmr.WithRevisionID(revisionID))
			}

			res, err := a.client.IngestConcept(cmd.Context(), concept, opts...)
			if err != nil {
				identifier, _ := concept.Identifier()
				invalid, ok := validationReport(conceptReport{Identifier: identifier}, err)
				if !ok {
					return err
				}
				if perr := a.printReport(cmd, invalid); perr != nil {
					return perr
				}
				return err
			}

			result := "updated"
			if res.Response.StatusCode == http.StatusCreated {
				result = "created"
			}
			return a.printReport(cmd, conceptReport{
				Identifier: res.Identifier,
				Result:     result,
				ConceptID:  res.ConceptID,
				RevisionID: res.RevisionID,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&revisionID, "revision-id", 0, "store the concept under this revision")

	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection|granule> <identifier>",
		Short: "Delete a concept by its native identifier",
		Long: "Deletes a concept from the configured provider. Deleting a concept\n" +
			"that does not exist is reported as already_deleted, not an error.",
		Example: `  cmrctl delete granule SC:MOD09GA.061:2345 --provider LPDAAC_ECS`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conceptType, err := cmr.ParseConceptType(args[0])
			if err != nil {
				return err
			}
			res, err := a.client.DeleteConcept(cmd.Context(), conceptType, args[1])
			if err != nil {
				return err
			}
			return a.printReport(cmd, conceptReport{
				Identifier: args[1],
				Result:     res.Outcome.String(),
				ConceptID:  res.ConceptID,
				RevisionID: res.RevisionID,
			})
		},
	}
}

// validationReport marks report invalid with CMR's messages when err is a
// validation failure.
func validationReport(report conceptReport, err error) (conceptReport, bool) {
	var verr *cmr.ValidationError
	if !errors.As(err, &verr) {
		return report, false
	}
	report.Result = "invalid"
	report.Errors = verr.AllMessages()
	return report, true
}

func (a *app) printReport(cmd *cobra.Command, r conceptReport) error {
	if a.jsonOutput() {
		return outputJSON(cmd.OutOrStdout(), r)
	}
	return printReport(cmd.OutOrStdout(), r)
}
