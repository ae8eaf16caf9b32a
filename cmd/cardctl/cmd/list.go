package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"doorkeeper/internal/domain/card"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored cards",
		Long:  `List every card in storage order. Formats: simple, table, json, csv.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cards, err := a.store.List(cmd.Context(), math.MaxUint16)
			if err != nil {
				return fmt.Errorf("list cards: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return printCardsJSON(out, cards)
			case "table":
				return printCardsTable(out, cards)
			case "csv":
				return printCardsCSV(out, cards)
			case "simple", "":
				printCardsSimple(out, cards)
				return nil
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "simple", "output format (simple, table, json, csv)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var bufferSize int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the JSON document served by GET /cards/get",
		Long: `Render the card list exactly as the device does, into a buffer of --buffer bytes.
A truncated document is still printed and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bufferSize <= 0 {
				bufferSize = a.cfg.Server.JSONBufferSize
			}

			buf := make([]byte, bufferSize)
			n, err := a.store.ToJSON(cmd.Context(), buf)
			if err != nil && !(errors.Is(err, card.ErrInsufficientCapacity) && n > 0) {
				return fmt.Errorf("export cards: %w", err)
			}

			out := cmd.OutOrStdout()
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("output truncated at %d bytes: %w", bufferSize, err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&bufferSize, "buffer", 0, "response buffer size in bytes (default JSON_BUFFER_SIZE)")
	return cmd
}

type cardView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Active   bool      `json:"active"`
	Default  bool      `json:"default"`
	LastSeen time.Time `json:"last_seen"`
}

func viewOf(c card.Card) cardView {
	return cardView{
		ID:       fmt.Sprintf("0x%08X", c.ID),
		Name:     c.Name,
		Active:   c.Active,
		Default:  card.IsDefault(c.ID),
		LastSeen: c.Seen().UTC(),
	}
}

func statusLabel(c card.Card) string {
	if c.Active {
		return "active"
	}
	return "inactive"
}

func printCardsSimple(w io.Writer, cards []card.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards stored")
		return
	}

	fmt.Fprintf(w, "Cards: %d\n\n", len(cards))
	for i, c := range cards {
		mark := "✓"
		if !c.Active {
			mark = "✗"
		}
		fmt.Fprintf(w, "%d. [%s] 0x%08X %s\n", i+1, mark, c.ID, c.Name)
	}
}

func printCardsTable(w io.Writer, cards []card.Card) error {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tStatus\tDefault\tLast seen\t\n")
	fmt.Fprintf(tw, "---\t---\t---\t---\t---\t\n")
	for _, c := range cards {
		v := viewOf(c)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t\n",
			v.ID, v.Name, statusLabel(c), v.Default, v.LastSeen.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d\n", len(cards))
	return nil
}

func printCardsJSON(w io.Writer, cards []card.Card) error {
	views := make([]cardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, viewOf(c))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}

func printCardsCSV(w io.Writer, cards []card.Card) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "status", "default", "last_seen"}); err != nil {
		return err
	}
	for _, c := range cards {
		v := viewOf(c)
		row := []string{v.ID, v.Name, statusLabel(c), strconv.FormatBool(v.Default), v.LastSeen.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
