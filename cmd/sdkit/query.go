package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/sdwebui-image-kit/pkg/query"
)

func newModelsCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "利用できるチェックポイントを一覧表示します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.query.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if !verbose {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(query.ModelNames(models), "\n"))
				return nil
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.Title, m.Hash, m.Filename)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "ハッシュとファイル名も表示する")
	return cmd
}

func newProgressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "実行中の生成の進捗を表示します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.query.GetProgress(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress: %.0f%%  eta: %.1fs  active: %t\n", p.Progress*100, p.ETARelative, p.Active)
			if p.TextInfo != "" {
				fmt.Fprintln(cmd.OutOrStdout(), p.TextInfo)
			}
			return nil
		},
	}
}

func newSetModelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-model <checkpoint>",
		Short: "既定のチェックポイントを切り替えます",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.query.SetModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model set to %s\n", args[0])
			return nil
		},
	}
}

func newInterruptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interrupt",
		Short: "実行中の生成を中断します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, err := a.newExecutor()
			if err != nil {
				return err
			}
			ok, err := exec.Interrupt(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "interrupted: %t\n", ok)
			return nil
		},
	}
}
