package cli

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/Ngone6325/graft"
)

// ErrUnknownType is returned when a type name matches neither a registration
// nor a catalog descriptor.
var ErrUnknownType = errors.New("unknown type")

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <type>",
		Short: "Resolve a type inside a fresh scope and report the result",
		Long: `Resolve a registered or catalog type by its Go name, for example
"model.IUserService" or "*model.UserRepo". The resolution runs inside a
scope that is ended before the command returns. Failures print the full
diagnostic, including the constructors that could not be used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookupType(a.container, args[0])
			if err != nil {
				return err
			}

			s := a.container.BeginScope()
			defer s.End()

			out := cmd.OutOrStdout()
			v, err := s.Resolve(t)
			if err != nil {
				fmt.Fprintf(out, "%s: resolution failed\n%v\n", t, err)
				return err
			}
			fmt.Fprintf(out, "%s => %T\n", t, v)
			return nil
		},
	}
}

// lookupType finds the type named name among the registered types, then in
// the container's catalog.
func lookupType(c *graft.Container, name string) (reflect.Type, error) {
	for t := range c.Registrations() {
		if t.String() == name {
			return t, nil
		}
	}
	if d, ok := c.Catalog().Lookup(name); ok {
		return d.Type, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
}
