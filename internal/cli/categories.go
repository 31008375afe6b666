package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage decision categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all categories",
	RunE:  runCategoriesList,
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a custom category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesAdd,
}

var categoriesRenameCmd = &cobra.Command{
	Use:   "rename <from> <to>",
	Short: "Rename a category across all decisions",
	Args:  cobra.ExactArgs(2),
	RunE:  runCategoriesRename,
}

var categoriesMergeCmd = &cobra.Command{
	Use:   "merge <target> <source>...",
	Short: "Fold one or more categories into a target",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCategoriesMerge,
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an unused custom category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoriesDelete,
}

func init() {
	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesRenameCmd)
	categoriesCmd.AddCommand(categoriesMergeCmd)
	categoriesCmd.AddCommand(categoriesDeleteCmd)
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.Categories().All(cmd.Context())
	if err != nil {
		return err
	}
	custom, err := a.Categories().Custom(cmd.Context())
	if err != nil {
		return err
	}
	customIDs := map[string]string{}
	for _, c := range custom {
		customIDs[c.Name] = c.ID
	}

	for _, name := range all {
		if id, ok := customIDs[name]; ok {
			fmt.Printf("%s (custom, id %s)\n", name, shortID(id))
		} else {
			fmt.Println(name)
		}
	}
	return nil
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.Categories().Add(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Added category %q\n", c.Name)
	return nil
}

func runCategoriesRename(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.Categories().Rename(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %q to %q across %d decisions\n", args[0], args[1], count)
	return nil
}

func runCategoriesMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	target, sources := args[0], args[1:]
	count, err := a.Categories().Merge(cmd.Context(), sources, target)
	if err != nil {
		return err
	}
	fmt.Printf("Merged %s into %q, moving %d decisions\n",
		strings.Join(sources, ", "), target, count)
	return nil
}

func runCategoriesDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Categories().Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("Category deleted")
	return nil
}
