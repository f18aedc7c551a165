package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

var (
	checkType      string
	checkAction    string
	checkModel     string
	checkTable     string
	checkColumns   []string
	checkPath      string
	checkChannel   string
	checkTemplate  string
	checkRecipient string
	checkModule    string
	checkAPI       string
	checkMethod    string
	checkURL       string
	checkHeaders   []string
	checkClass     string
	checkRoute     string
	checkGuard     string
	checkContext   []string
)

var checkCmd = &cobra.Command{
	Use:   "check <plugin-id>",
	Short: "Ask whether a plugin may perform an operation",
	Long: `Evaluate one capability request against the plugin's compiled grants
and print the decision. The command exits non-zero when the request is
denied.

Examples:
  plugwarden check my-plugin --type db --action select --table orders --columns id,total
  plugwarden check my-plugin --type file --action read --path logs/app.log
  plugwarden check my-plugin --type network --method GET --url https://api.example.com/v1/items
  plugwarden check my-plugin --type route --route admin.export --guard admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkType, "type", "", "capability type: db, file, notification, module, network, codec, route")
	checkCmd.Flags().StringVar(&checkAction, "action", "", "requested action (db, file, notification)")
	checkCmd.Flags().StringVar(&checkModel, "model", "", "model name (db)")
	checkCmd.Flags().StringVar(&checkTable, "table", "", "table name (db)")
	checkCmd.Flags().StringSliceVar(&checkColumns, "columns", nil, "columns touched (db, comma-separated)")
	checkCmd.Flags().StringVar(&checkPath, "path", "", "file path (file)")
	checkCmd.Flags().StringVar(&checkChannel, "channel", "", "notification channel")
	checkCmd.Flags().StringVar(&checkTemplate, "template", "", "notification template")
	checkCmd.Flags().StringVar(&checkRecipient, "recipient", "", "notification recipient")
	checkCmd.Flags().StringVar(&checkModule, "module", "", "module name (module)")
	checkCmd.Flags().StringVar(&checkAPI, "api", "", "module API (module)")
	checkCmd.Flags().StringVar(&checkMethod, "method", "", "HTTP method (network) or codec method (codec)")
	checkCmd.Flags().StringVar(&checkURL, "url", "", "target URL (network)")
	checkCmd.Flags().StringSliceVar(&checkHeaders, "header", nil, "request header name=value (network, repeatable)")
	checkCmd.Flags().StringVar(&checkClass, "class", "", "target class (codec unserialize)")
	checkCmd.Flags().StringVar(&checkRoute, "route", "", "route id (route)")
	checkCmd.Flags().StringVar(&checkGuard, "guard", "", "guard the request runs under (route)")
	checkCmd.Flags().StringSliceVar(&checkContext, "context", nil, "evaluation context key=value (repeatable)")

	_ = checkCmd.MarkFlagRequired("type")
}

func runCheck(cmd *cobra.Command, pluginID string) error {
	c, err := newContainer()
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	req, err := buildRequest()
	if err != nil {
		return err
	}

	result := c.Permissions().Can(cmd.Context(), pluginID, req, parsePairs(checkContext))
	if result.Allowed {
		if result.Matched != nil {
			fmt.Printf("allowed (matched %s id=%d)\n", result.Matched.Type, result.Matched.ID)
		} else {
			fmt.Println("allowed")
		}
		return nil
	}
	return fmt.Errorf("denied: %s", result.Reason)
}

func buildRequest() (capability.Request, error) {
	switch capability.Type(checkType) {
	case capability.TypeDB:
		return capability.DBRequest{
			Action:  checkAction,
			Model:   checkModel,
			Table:   checkTable,
			Columns: checkColumns,
		}, nil
	case capability.TypeFile:
		return capability.FileRequest{Action: checkAction, Path: checkPath}, nil
	case capability.TypeNotification:
		return capability.NotificationRequest{
			Action:    checkAction,
			Channel:   checkChannel,
			Template:  checkTemplate,
			Recipient: checkRecipient,
		}, nil
	case capability.TypeModule:
		return capability.ModuleRequest{Module: checkModule, API: checkAPI}, nil
	case capability.TypeNetwork:
		return capability.NetworkRequest{
			Method:  checkMethod,
			URL:     checkURL,
			Headers: headerMap(checkHeaders),
		}, nil
	case capability.TypeCodec:
		return capability.CodecRequest{Method: checkMethod, TargetClass: checkClass}, nil
	case capability.TypeRoute:
		return capability.RouteRequest{RouteID: checkRoute, Guard: checkGuard}, nil
	default:
		return nil, fmt.Errorf("unknown capability type %q", checkType)
	}
}

func parsePairs(pairs []string) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			out[pair] = true
			continue
		}
		out[key] = value
	}
	return out
}

func headerMap(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, _ := strings.Cut(pair, "=")
		out[name] = value
	}
	return out
}
