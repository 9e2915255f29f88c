package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index/bruteforce"
	"github.com/viant/nearest/internal/config"
	"github.com/viant/nearest/persist"
	"github.com/viant/nearest/vector"
)

func newNewCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an empty index bound to the configured metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			loc := a.location()
			b, release, err := a.open(ctx, loc)
			if err != nil {
				return err
			}
			defer release()

			if !force {
				_, err := b.Load(ctx)
				if err == nil {
					return errs.New(errs.CodeConfigInvalid, "index "+loc.String()+" already exists, use --force to replace it")
				}
				if !errs.IsNotFound(err) {
					return err
				}
			}
			idx, err := bruteforce.New(a.cfg.Metric, bruteforce.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if err := persist.SaveIndex(ctx, b, idx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s index %s\n", idx.Metric(), loc)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing index")
	return cmd
}

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.json>...",
		Short: "Insert vectors from JSON files of the form {\"id\": [1.0, 2.0], ...}",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, release, err := a.open(ctx, a.location())
			if err != nil {
				return err
			}
			defer release()

			idx, err := a.load(ctx, b, true)
			if err != nil {
				return err
			}
			added := 0
			for _, path := range args {
				vectors, err := persist.IngestFile(path)
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(vectors))
				for id := range vectors {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				vecs := make([]vector.Vector, len(ids))
				for i, id := range ids {
					vecs[i] = vectors[id]
				}
				if err := idx.BatchInsert(ids, vecs); err != nil {
					return errs.With(err, errs.FieldPath(path))
				}
				added += len(ids)
			}
			if err := persist.SaveIndex(ctx, b, idx); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ingested %d vectors, index holds %d\n", added, idx.Len())
			return err
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "add [--id ID] -- <values>...",
		Short: "Insert one vector; a random id is generated when --id is not given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseVector(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, release, err := a.open(ctx, a.location())
			if err != nil {
				return err
			}
			defer release()

			idx, err := a.load(ctx, b, true)
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			if err := idx.Insert(id, vec); err != nil {
				return err
			}
			if err := persist.SaveIndex(ctx, b, idx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "vector identifier")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [-k N] -- <values>...",
		Short: "Print the k stored vectors nearest to the given one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseVector(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, release, err := a.open(ctx, a.location())
			if err != nil {
				return err
			}
			defer release()

			matches, err := a.nearest(ctx, b, query)
			if err != nil {
				return err
			}
			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"Rank", "ID", "Distance"})
			for i, m := range matches {
				tw.Append([]string{
					strconv.Itoa(i + 1),
					m.ID,
					strconv.FormatFloat(m.Distance, 'g', -1, 64),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntP("k", "k", 10, "number of neighbours to return")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the configured index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			loc := a.location()
			b, release, err := a.open(ctx, loc)
			if err != nil {
				return err
			}
			defer release()

			idx, err := a.load(ctx, b, false)
			if err != nil {
				return err
			}
			dims := make(map[int]int)
			for _, id := range idx.IDs() {
				vec, _ := idx.Get(id)
				dims[len(vec)]++
			}
			lengths := make([]int, 0, len(dims))
			for n := range dims {
				lengths = append(lengths, n)
			}
			sort.Ints(lengths)
			dimText := ""
			for i, n := range lengths {
				if i > 0 {
					dimText += ", "
				}
				dimText += fmt.Sprintf("%d (%d)", n, dims[n])
			}

			size := "-"
			if n, err := diskSize(loc.Index); err == nil {
				size = humanize.Bytes(n)
			}

			tw := tablewriter.NewWriter(cmd.OutOrStdout())
			tw.SetHeader([]string{"Property", "Value"})
			tw.Append([]string{"Location", loc.String()})
			tw.Append([]string{"Backend", loc.Backend})
			tw.Append([]string{"Metric", idx.Metric().String()})
			tw.Append([]string{"Vectors", humanize.Comma(int64(idx.Len()))})
			tw.Append([]string{"Dimensions", dimText})
			tw.Append([]string{"Size", size})
			tw.Render()
			return nil
		},
	}
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		to     location
		format string
	)
	cmd := &cobra.Command{
		Use:   "convert --to-index PATH [--to-backend B] [--to-name N] [--to-format F]",
		Short: "Copy the configured index to another backend or file format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if to.Backend == "" {
				to.Backend = config.BackendFile
			}
			if to.Name == "" {
				to.Name = a.cfg.Name
			}
			if to.Index == "" {
				return errs.New(errs.CodeConfigInvalid, "--to-index is required")
			}
			var codec persist.Codec
			if format != "" {
				if to.Backend != config.BackendFile {
					return errs.New(errs.CodeConfigInvalid, "--to-format only applies to the file backend", errs.Field("backend", to.Backend))
				}
				var err error
				if codec, err = persist.CodecByName(format); err != nil {
					return err
				}
			}
			from := a.location()
			if from == to {
				return errs.New(errs.CodeConfigInvalid, "source and target are the same index "+from.String())
			}

			ctx := cmd.Context()
			src, releaseSrc, err := a.open(ctx, from)
			if err != nil {
				return err
			}
			defer releaseSrc()
			snap, err := src.Load(ctx)
			if err != nil {
				return err
			}

			dst, releaseDst, err := a.open(ctx, to)
			if err != nil {
				return err
			}
			defer releaseDst()
			if f, ok := dst.(*persist.File); ok && codec != nil {
				f.Codec = codec
			}
			if err := dst.Save(ctx, snap); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "copied %d vectors from %s to %s\n", len(snap.Vectors), from, to)
			return err
		},
	}
	cmd.Flags().StringVar(&to.Index, "to-index", "", "target index location")
	cmd.Flags().StringVar(&to.Backend, "to-backend", "", "target backend (file, sqlite, badger)")
	cmd.Flags().StringVar(&to.Name, "to-name", "", "target index name inside a sqlite or badger store")
	cmd.Flags().StringVar(&format, "to-format", "", "target file format (json, msgpack); defaults to the one implied by the extension")
	return cmd
}
