package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LENAX/roadmap-engine/pkg/cli/output"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/spf13/cobra"
)

var eventTypes []string

// eventsCmd 订阅服务端事件
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "订阅服务端事件流",
	Long: fmt.Sprintf(`通过websocket持续输出服务端事件，Ctrl+C退出。

可用事件类型：%s`, joinEventTypes()),
	RunE: func(cmd *cobra.Command, args []string) error {
		types := make([]events.EventType, 0, len(eventTypes))
		for _, t := range eventTypes {
			types = append(types, events.EventType(strings.TrimSpace(t)))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stream, err := newClient().Events(ctx, types...)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Info("已连接 %s，等待事件...", serverURL)

		for event := range stream {
			if outputJSON {
				if err := output.PrintJSON(event); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(output.Writer, "%s  %-22s  %s\n",
				event.Timestamp.Local().Format("2006-01-02 15:04:05"), event.Type, event.RoadmapID)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringSliceVarP(&eventTypes, "types", "t", nil, "只订阅指定类型，逗号分隔")
}

func joinEventTypes() string {
	names := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
