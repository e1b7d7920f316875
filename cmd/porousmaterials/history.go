/*
 * history.go, part of porousmaterials.
 *
 *
 * Copyright 2026 The porousmaterials authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/store"
	"github.com/ezpzbz/porousmaterials/workchain"
	"github.com/spf13/cobra"
)

func shortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printCalculations(w io.Writer, recs []*calc.Record) error {
	t := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(t, "ID\tCREATED\tLABEL\tPROCESS\tSTATUS\tEXIT")
	for _, r := range recs {
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, shortTime(r.Created), r.Label, r.Process, store.Status(r.ExitCode), r.ExitCode.Status)
	}
	return t.Flush()
}

func printWorkChains(w io.Writer, recs []*workchain.Record) error {
	t := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(t, "ID\tCREATED\tLABEL\tCALCULATIONS\tSTRUCTURE")
	for _, r := range recs {
		fmt.Fprintf(t, "%s\t%s\t%s\t%d\t%s\n", r.ID, shortTime(r.Created), r.Label, len(r.Calculations), r.Structure)
	}
	return t.Flush()
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	var workchains bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the recorded calculations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if workchains {
				recs, err := st.WorkChains(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printWorkChains(cmd.OutOrStdout(), recs)
			}
			recs, err := st.Calculations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printCalculations(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records, 0 for all")
	cmd.Flags().BoolVar(&workchains, "workchains", false, "List workchains instead of calculations")
	return cmd
}

func calculationView(r *calc.Record, files []string) map[string]interface{} {
	v := map[string]interface{}{
		"id":        r.ID,
		"label":     r.Label,
		"process":   r.Process,
		"code":      r.Code,
		"status":    store.Status(r.ExitCode),
		"exit_code": r.ExitCode.Status,
		"workdir":   r.WorkDir,
		"created":   shortTime(r.Created),
		"finished":  shortTime(r.Finished),
		"inputs":    r.Inputs,
	}
	if r.Description != "" {
		v["description"] = r.Description
	}
	if r.ExitCode.Message != "" {
		v["exit_message"] = r.ExitCode.Message
	}
	if len(r.Outputs) > 0 {
		v["outputs"] = r.Outputs
	}
	if len(r.Files) > 0 {
		v["output_files"] = r.Files
	}
	if len(files) > 0 {
		v["recorded_files"] = files
	}
	return v
}

func workchainView(r *workchain.Record) map[string]interface{} {
	return map[string]interface{}{
		"id":           r.ID,
		"label":        r.Label,
		"structure":    r.Structure,
		"created":      shortTime(r.Created),
		"finished":     shortTime(r.Finished),
		"results":      r.Results,
		"files":        r.Files,
		"calculations": r.Calculations,
	}
}

func (a *app) showCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a recorded calculation or workchain",
		Long: `show prints the inputs, outputs and files of the calculation or workchain ID. With
--file, it prints the content of a file recorded for the calculation instead, such as
input.jl or retrieved/out.res.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()
			id := args[0]
			if file != "" {
				data, err := st.File(ctx, id, file)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			rec, err := st.Calculation(ctx, id)
			if err == nil {
				files, err := st.FileNames(ctx, id)
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), calculationView(rec, files))
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			wc, err := st.WorkChain(ctx, id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no calculation or workchain %s", id)
				}
				return err
			}
			return printYAML(cmd.OutOrStdout(), workchainView(wc))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Print this recorded file of the calculation")
	return cmd
}
