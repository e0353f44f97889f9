package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Manage enrolled identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents()
		if err != nil {
			return err
		}

		identities, err := c.repo.List()
		if err != nil {
			return err
		}
		if len(identities) == 0 {
			fmt.Println("No identities enrolled.")
			return nil
		}
		for _, ident := range identities {
			fmt.Printf("%s  %-30s  %d photos  enrolled %s\n",
				ident.ID, ident.Name, len(ident.ImagePaths),
				ident.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var identitiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an identity (photos and record move to trash)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := mustGetBool(cmd, "confirm")

		c, err := buildComponents()
		if err != nil {
			return err
		}

		trashPath, err := c.repo.Delete(args[0], confirm)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s; recoverable snapshot at %s\n", args[0], trashPath)
		return nil
	},
}

var identitiesReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the embedding index from the identity repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents()
		if err != nil {
			return err
		}

		n, err := c.repo.RebuildIndex()
		if err != nil {
			return err
		}
		fmt.Printf("Rebuilt embedding index for %d identities\n", n)
		return nil
	},
}

var identitiesFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find identities by display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents()
		if err != nil {
			return err
		}

		found, err := c.repo.FindByName(args[0])
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Println("No match.")
			return nil
		}
		for _, ident := range found {
			fmt.Printf("%s  %s\n", ident.ID, ident.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesDeleteCmd)
	identitiesCmd.AddCommand(identitiesReindexCmd)
	identitiesCmd.AddCommand(identitiesFindCmd)

	identitiesDeleteCmd.Flags().Bool("confirm", false, "Confirm the deletion")
}
