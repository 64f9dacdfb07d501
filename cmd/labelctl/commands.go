package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"github.com/xelth-com/clamflow-labels/internal/services/printer"
)

var errInvalid = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	var plant bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a template (or, with --plant, a plant configuration)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res labels.ValidationResult
			if plant {
				var p models.PlantConfiguration
				if err := readDocument(args[0], &p); err != nil {
					return err
				}
				res = labels.ValidatePlantConfig(p)
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				tpl, err := labels.DecodeTemplate(data, documentFormat(args[0]))
				if err != nil {
					return err
				}
				res = labels.ValidateTemplate(tpl)
			}
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
			if !res.IsValid {
				return fmt.Errorf("%w: %d error(s)", errInvalid, len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plant, "plant", false, "validate a plant configuration")
	return cmd
}

// inputs are the files shared by generate and batch
type inputs struct {
	template, plant, form, station string
	noQR                           bool
}

func (in *inputs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.template, "template", "", "template file (json or yaml)")
	cmd.Flags().StringVar(&in.plant, "plant", "", "plant configuration file")
	cmd.Flags().StringVar(&in.form, "form", "", "form data file")
	cmd.Flags().StringVar(&in.station, "station", "", "station data file")
	cmd.Flags().BoolVar(&in.noQR, "no-qr", false, "skip QR image rendering")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("plant")
}

func (in *inputs) load() (models.Template, *models.PlantConfiguration, map[string]interface{}, map[string]interface{}, error) {
	var (
		tpl   models.Template
		plant models.PlantConfiguration
	)
	data, err := os.ReadFile(in.template)
	if err != nil {
		return tpl, nil, nil, nil, err
	}
	if tpl, err = labels.DecodeTemplate(data, documentFormat(in.template)); err != nil {
		return tpl, nil, nil, nil, err
	}
	if v := labels.ValidateForGeneration(tpl); !v.IsValid {
		return tpl, nil, nil, nil, fmt.Errorf("%w: %s", errInvalid, v.Error())
	}
	if err := readDocument(in.plant, &plant); err != nil {
		return tpl, nil, nil, nil, err
	}
	form, err := readData(in.form)
	if err != nil {
		return tpl, nil, nil, nil, err
	}
	station, err := readData(in.station)
	if err != nil {
		return tpl, nil, nil, nil, err
	}
	return tpl, &plant, form, station, nil
}

func (in *inputs) options() labels.GenerateOptions {
	include := !in.noQR
	return labels.GenerateOptions{IncludeQRCode: &include}
}

func newGenerateCmd() *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a single label",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, plant, form, station, err := in.load()
			if err != nil {
				return err
			}
			label, err := newGenerator().Generate(cmd.Context(), tpl, plant, form, station, in.options())
			if err != nil {
				return err
			}
			return writeJSON(cmd, label)
		},
	}
	in.bind(cmd)
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		in     inputs
		cfg    labels.BatchConfig
		stream bool
		sheet  string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate a batch of labels sharing one batch id",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, plant, form, station, err := in.load()
			if err != nil {
				return err
			}
			gen := newGenerator()

			// stream writes one label per line as it is produced
			if stream {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for label, err := range gen.BatchIterator(cmd.Context(), tpl, plant, cfg, form, station, in.options()) {
					if err != nil {
						return err
					}
					if err := enc.Encode(label); err != nil {
						return err
					}
				}
				return nil
			}

			out, err := gen.GenerateBatch(cmd.Context(), tpl, plant, cfg, form, station, in.options())
			if err != nil {
				return err
			}
			if sheet != "" {
				items := make([]models.GeneratedLabel, len(out))
				for i, l := range out {
					items[i] = *l
				}
				pdf, err := printer.SheetPDF(items, printer.SheetConfig{})
				if err != nil {
					return err
				}
				if err := os.WriteFile(sheet, pdf, 0o644); err != nil {
					return err
				}
			}
			return writeJSON(cmd, out)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&cfg.BatchID, "batch-id", "", "batch id (generated when empty)")
	cmd.Flags().IntVar(&cfg.Quantity, "quantity", 1, "number of labels")
	cmd.Flags().IntVar(&cfg.StartNumber, "start", 1, "first sequence number")
	cmd.Flags().StringVar(&cfg.SequenceFormat, "format", "", `sequence format, e.g. "BATCH-{seq:4}"`)
	cmd.Flags().BoolVar(&stream, "stream", false, "write newline-delimited labels as they are generated")
	cmd.Flags().StringVar(&sheet, "sheet", "", "also write an A4 PDF label sheet to this path")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		labelPath, format, out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a generated label as json, html or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			var label models.GeneratedLabel
			if err := readDocument(labelPath, &label); err != nil {
				return err
			}
			data, err := labels.ExportLabel(label, labels.ExportFormat(format))
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, data)
		},
	}
	cmd.Flags().StringVar(&labelPath, "label", "", "generated label file")
	cmd.Flags().StringVar(&format, "format", "json", "json, html, pdf or png")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	cmd.MarkFlagRequired("label")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <labels.json>",
		Short: "Summarise a JSON array or newline-delimited stream of labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readLabels(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, labels.GenerateStatistics(items))
		},
	}
}

// readLabels accepts the output of both batch modes
func readLabels(path string) ([]models.GeneratedLabel, error) {
	var items []models.GeneratedLabel
	if err := readDocument(path, &items); err == nil {
		return items, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items = items[:0]
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var l models.GeneratedLabel
		if err := dec.Decode(&l); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		items = append(items, l)
	}
	return items, nil
}
