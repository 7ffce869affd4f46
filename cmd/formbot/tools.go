package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/m3rciful/formbot/internal/acl"
	"github.com/m3rciful/formbot/internal/form"
	"github.com/m3rciful/formbot/internal/render"
)

func newACLCmd(flags *rootFlags) *cobra.Command {
	var file string
	open := func() (*acl.Store, error) {
		path := file
		if path == "" {
			cfg, err := loadConfig(flags)
			if err != nil {
				return nil, fmt.Errorf("acl file not given and config unavailable: %w", err)
			}
			path = cfg.ACL.Path
		}
		return acl.Open(path)
	}

	cmd := &cobra.Command{
		Use:   "acl",
		Short: "Inspect or edit the access list without the bot",
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "access list path; defaults to acl.path from the config")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print admins and allowed users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			return printACL(cmd.OutOrStdout(), store)
		},
	}

	change := func(use, short string, fn func(*acl.Store, string) (acl.Result, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				res, err := fn(store, args[0])
				if err != nil {
					return err
				}
				if !res.OK {
					fmt.Fprintf(cmd.OutOrStdout(), "unchanged: %s\n", res.Reason)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: done\n", use, strings.TrimSpace(args[0]))
				return nil
			},
		}
	}

	cmd.AddCommand(
		list,
		change("add", "Allow a user", (*acl.Store).AddAllowed),
		change("remove", "Revoke a user", (*acl.Store).RemoveAllowed),
		change("add-admin", "Promote a user to admin", (*acl.Store).AddAdmin),
	)
	return cmd
}

func printACL(w io.Writer, store *acl.Store) error {
	admins, err := store.ListAdmins()
	if err != nil {
		return err
	}
	allowed, err := store.ListAllowed()
	if err != nil {
		return err
	}
	printIDs(w, "admins", admins)
	printIDs(w, "allowed", allowed)
	return nil
}

func printIDs(w io.Writer, title string, ids []string) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
}

func newFormsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "List the known products and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := form.Open(file)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, product := range catalog.Products() {
				def, err := catalog.Lookup(product)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s  %s\n", product, def.Script)
				for _, f := range def.Fields {
					var notes []string
					if f.Kind == form.KindPhoto {
						notes = append(notes, "photo")
					}
					if f.Hidden {
						notes = append(notes, "hidden")
					}
					if f.Script != "" {
						notes = append(notes, "script="+f.Script)
					}
					line := fmt.Sprintf("  --%s", f.RendererFlag())
					if len(notes) > 0 {
						line += " (" + strings.Join(notes, ", ") + ")"
					}
					fmt.Fprintln(w, line)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "forms-file", "", "YAML file merged over the builtin products")
	return cmd
}

type renderFlags struct {
	formsFile   string
	product     string
	variant     string
	sets        []string
	out         string
	interpreter string
	workDir     string
	timeout     time.Duration
}

func newRenderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run a product renderer once with the given field values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return renderOnce(ctx, cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&f.formsFile, "forms-file", "", "YAML file merged over the builtin products")
	cmd.Flags().StringVarP(&f.product, "product", "p", "", "product to render")
	cmd.Flags().StringVar(&f.variant, "variant", "", "field whose own script should render")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "field value as Name=value; repeatable")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output path; defaults to OutPut/<product>_post_0.png")
	cmd.Flags().StringVar(&f.interpreter, "interpreter", render.DefaultInterpreter, "renderer interpreter")
	cmd.Flags().StringVar(&f.workDir, "workdir", "", "directory scripts and assets resolve from")
	cmd.Flags().DurationVar(&f.timeout, "timeout", render.DefaultTimeout, "renderer time limit")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func renderOnce(ctx context.Context, w io.Writer, f *renderFlags) error {
	catalog, err := form.Open(f.formsFile)
	if err != nil {
		return err
	}
	def, err := catalog.Lookup(f.product)
	if err != nil {
		return err
	}
	values, err := parseSets(def, f.sets)
	if err != nil {
		return err
	}
	out := f.out
	if out == "" {
		out = def.OutputPath("OutPut", 0)
	}
	req, err := render.BuildRequest(def, values, f.variant, out)
	if err != nil {
		return err
	}
	path, err := render.NewSubprocess(f.interpreter, f.timeout, f.workDir).Render(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}

func parseSets(def form.Definition, sets []string) (form.Values, error) {
	values := form.Values{}
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want Name=value", s)
		}
		if _, err := def.Field(name); err != nil {
			return nil, err
		}
		if err := values.Set(name, value); err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
	}
	return values, nil
}
