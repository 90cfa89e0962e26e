package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vibebros/logging"
	"vibebros/posts"
	"vibebros/sections"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validates every post in the content directory",
	Long: `The check command parses every post, printing its slug, date and sections.
It exits with an error on the first post with invalid front matter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.OutOrStdout(), appConfig.ContentDir, logs.GetLogger("posts"))
	},
}

func runCheck(w io.Writer, dir string, logger logging.Logger) error {
	repo := posts.NewRepository(dir, logger)

	all, err := repo.GetAllPosts()
	if err != nil {
		return err
	}

	for _, post := range all {
		split := sections.Split(post.Content)
		fmt.Fprintf(w, "%s\t%s\t%d sections\n", post.Slug, post.Date, len(split))
		for _, s := range split {
			fmt.Fprintf(w, "\t#%s\t%s\n", s.ID, s.Title)
		}
	}
	fmt.Fprintf(w, "%d posts OK\n", len(all))
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
