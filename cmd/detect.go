package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/tagwatch/internal/flags"
	"github.com/nicholas-fedor/tagwatch/pkg/patterns"
	"github.com/nicholas-fedor/tagwatch/pkg/registry/helpers"
)

// errNoTags indicates the registry returned no tags for the image.
var errNoTags = errors.New("no tags found")

// TagLister fetches the tags of a repository ordered by push time, newest last.
type TagLister interface {
	ListTagsByRecency(ctx context.Context, ref helpers.ImageReference) []string
}

func init() {
	detectCmd := &cobra.Command{
		Use:   "detect IMAGE",
		Short: "Suggest version patterns and base tags for an image",
		Long: "\nLists the tags of IMAGE, groups them by structure and prints a regex for each\n" +
			"version scheme found, most recently pushed first, followed by candidate base tags.",
		Args: cobra.ExactArgs(1),
		Run:  runDetect,
	}

	detectCmd.Flags().StringP("registry", "r", "", "Registry to query instead of the one in IMAGE")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) {
	rootFlags := cmd.Root().PersistentFlags()
	flags.ProcessFlagAliases(rootFlags)

	if err := flags.SetupLogging(rootFlags); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	reg, err := newRegistryClient(rootFlags)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create registry client")
	}

	registryOverride, _ := cmd.Flags().GetString("registry")

	if err := detect(cmd.Context(), cmd.OutOrStdout(), reg, args[0], registryOverride); err != nil {
		logrus.WithError(err).WithField("image", args[0]).Fatal("Pattern detection failed")
	}
}

// detect lists the tags of image and writes the detected patterns and base tags to out.
//
// Parameters:
//   - ctx: Context for registry requests.
//   - out: Destination of the report.
//   - lister: Tag source.
//   - image: Image reference to inspect.
//   - registryOverride: Registry host replacing the one in image, if non-empty.
//
// Returns:
//   - error: Non-nil if the registry returned no tags.
func detect(ctx context.Context, out io.Writer, lister TagLister, image, registryOverride string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ref := helpers.ParseImageReference(image).WithRegistry(registryOverride)

	tags := lister.ListTagsByRecency(ctx, ref)
	if len(tags) == 0 {
		return fmt.Errorf("%w: %s", errNoTags, ref)
	}

	logrus.WithFields(logrus.Fields{
		"image": ref.String(),
		"tags":  len(tags),
	}).Debug("Fetched tags for pattern detection")

	detected := patterns.DetectTagPatterns(tags)
	baseTags := patterns.DetectBaseTags(tags, detected)

	fmt.Fprintf(out, "Image: %s (%d tags)\n", ref, len(tags))

	if len(detected) == 0 {
		fmt.Fprintln(out, "\nNo version patterns detected.")
	}

	for i, pattern := range detected {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, pattern.Label)
		fmt.Fprintf(out, "   regex:    %s\n", pattern.Regex)
		fmt.Fprintf(out, "   matches:  %d\n", pattern.MatchCount)
		fmt.Fprintf(out, "   examples: %s\n", strings.Join(pattern.Examples, ", "))
	}

	if len(baseTags) > 0 {
		fmt.Fprintf(out, "\nBase tags: %s\n", strings.Join(baseTags, ", "))
	}

	return nil
}
