package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"live-quiz-service/internal/route"
)

const landingText = `Live Quiz

  Host a game:   live-quiz host
  Join a game:   live-quiz join <host-url> <code>
                 or open the link the host shares: live-quiz open '<url>#join=<code>'
`

// NewOpenCmd dispatches a shared link to the host, player or landing behaviour.
func NewOpenCmd(root *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "open [link]",
		Short: "Open a quiz link (#host, #join=<code>)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := ""
			if len(args) == 1 {
				link = args[0]
			}
			base, r := resolveLink(link)
			switch r.Role {
			case route.RoleHost:
				cfg, err := loadConfig(root)
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				return runHost(cmd.Context(), cfg, &hostOptions{console: true}, cmd.InOrStdin(), cmd.OutOrStdout())
			case route.RolePlayer:
				if base == "" {
					return errors.New("the link has no host address")
				}
				if _, err := loadConfig(root); err != nil {
					return err
				}
				return runJoin(cmd.Context(), base, r.Target, &joinOptions{name: name}, cmd.InOrStdin(), cmd.OutOrStdout())
			default:
				showLanding(cmd.OutOrStdout())
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name when joining")
	return cmd
}

// resolveLink splits a link into the host address before the fragment and its route.
func resolveLink(link string) (string, route.Route) {
	base := ""
	if i := strings.IndexByte(link, '#'); i > 0 {
		base = strings.TrimRight(link[:i], "/")
	}
	return base, route.Parse(link)
}

func showLanding(w io.Writer) {
	fmt.Fprint(w, landingText)
}
