/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/gradefactory/internal/backend"
	"github.com/valpere/gradefactory/internal/config"
)

var pingBackends bool

type pinger interface {
	Ping(ctx context.Context) error
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available backends and their credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BACKEND\tMODEL\tDEFAULT\tSTATUS")
		for _, name := range backend.Names() {
			b, err := backend.New(name, cfg.BackendConfig(name))
			if err != nil {
				return err
			}

			status := "ready"
			if err := b.Ready(); err != nil {
				status = "missing credentials"
			} else if p, ok := b.(pinger); ok && pingBackends {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := p.Ping(ctx); err != nil {
					status = "unreachable"
				}
				cancel()
			}

			def := ""
			if name == cfg.ModelBackend {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, b.Model(), def, status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)

	backendsCmd.Flags().BoolVar(&pingBackends, "ping", false, "Check that self-hosted backends answer")
}
