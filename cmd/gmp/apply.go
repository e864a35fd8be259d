package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/gmp/internal/presentation/tui"
	httpadapter "github.com/aretw0/gmp/pkg/adapters/http"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [command-file]",
	Short: "Submit a sequence command to a running server",
	Long: `Submits the command described by a YAML or JSON file, or by a preset, to the
GMP server and prints its response.

	sequence_command: APPLY
	activity: START
	configuration:
	  "X:S1:A.val1": xa1

With --wait, a STARTED response is followed until every handler completed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		command, timeout := loadCommand(cmd, args)
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetDuration("timeout")
		}
		wait, _ := cmd.Flags().GetBool("wait")
		server, _ := cmd.Flags().GetString("server")

		body := map[string]any{
			"sequence_command": command.SequenceCommand,
			"activity":         command.Activity,
			"configuration":    command.Configuration.ToMap(),
			"wait":             wait,
		}
		if timeout > 0 {
			body["timeout"] = timeout.String()
		}

		// The server may hold the request for the whole wait.
		client := newAPIClient(server, timeout+30*time.Second)
		var resp httpadapter.CommandResponse
		if err := client.do("POST", "/commands", body, &resp); err != nil {
			fail("%v", err)
		}

		r := domain.NewResponse(resp.Response, resp.Message)
		out := tui.FormatResponse(termenv.ColorProfile(), r)
		if resp.ActionID != 0 {
			out = fmt.Sprintf("action %s: %s", strconv.FormatInt(resp.ActionID, 10), out)
		}
		fmt.Println(out)
		if r.IsError() {
			os.Exit(2)
		}
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <action-id>",
	Short: "Report the asynchronous completion of an action",
	Long:  `Reports, on behalf of a handler, the final reply for an action it answered STARTED.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fail("invalid action id %q", args[0])
		}
		response, _ := cmd.Flags().GetString("response")
		kind, err := domain.ParseResponseKind(response)
		if err != nil {
			fail("%v", err)
		}
		message, _ := cmd.Flags().GetString("message")
		server, _ := cmd.Flags().GetString("server")

		body := map[string]string{"response": string(kind), "message": message}
		path := "/actions/" + strconv.FormatInt(id, 10) + "/completion"
		if err := newAPIClient(server, 10*time.Second).do("POST", path, body, nil); err != nil {
			fail("%v", err)
		}
		fmt.Printf("action %d: %s reported\n", id, kind)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	addCommandFlags(applyCmd)
	addServerFlag(applyCmd)
	applyCmd.Flags().BoolP("wait", "w", false, "Wait for the final response")
	applyCmd.Flags().Duration("timeout", 0, "Handler timeout (default: the server's)")

	rootCmd.AddCommand(completeCmd)
	addServerFlag(completeCmd)
	completeCmd.Flags().StringP("response", "r", "COMPLETED", "Final reply: COMPLETED or ERROR")
	completeCmd.Flags().StringP("message", "m", "", "Error message")
}
