// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/lang/feedback"
)

// NewListenCommand creates the listen command.
func NewListenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Serve the runtime feedback loop over NATS",
		Long: `Subscribe to <prefix>.turn and <prefix>.runtime.error and publish each
generated or regenerated component to <prefix>.component.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := GetConfig(cmd.Context())
			svc, _, err := newService(ctx, cfg, serviceNeeds{Model: true})
			if err != nil {
				return err
			}
			nc, err := feedback.Connect(cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Close()

			bridge := feedback.NewBridge(nc, cfg.NATS.SubjectPrefix, svc.NewLoop(cfg.Retry.RuntimeMax))
			return bridge.Run(ctx)
		},
	}
	cmd.Flags().String("nats-url", "", "NATS server URL")
	cmd.Flags().String("nats-prefix", "", "Subject prefix")
	return cmd
}
