package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plurianual/internal/engine"
)

func axisCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "axis", Short: "Manage strategic axes"}
	cmd.AddCommand(axisCreateCmd())
	cmd.AddCommand(axisListCmd())
	cmd.AddCommand(axisDeleteCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Rebuild axis usage flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printResync(e.ResyncAxes(ctx, actor()))
			})
		},
	})
	return cmd
}

func axisCreateCmd() *cobra.Command {
	var in engine.AxisInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an axis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ax, err := e.CreateAxis(ctx, in, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ax)
				}
				fmt.Println("created axis", ax.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Nome, "nome", "", "axis name")
	cmd.Flags().StringVar(&in.Descricao, "descricao", "", "description")
	_ = cmd.MarkFlagRequired("nome")
	return cmd
}

func axisListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List axes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				axes, err := e.ListAxes(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(axes)
				}
				tw := newTable("ID", "Nome", "Descrição", "Em uso")
				for _, ax := range axes {
					tw.AppendRow([]any{ax.ID, ax.Nome, ax.Descricao, yesNo(ax.IsUsed)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func axisDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an axis no program names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteAxis(ctx, args[0], actor()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}
