package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sie-engine/siechat/internal/repository"
	"github.com/sie-engine/siechat/internal/service"
	"github.com/spf13/cobra"
)

func TopicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage topic terms",
		Long:  "Create, list, and delete topic path-pattern terms",
	}

	cmd.AddCommand(TopicCreateCmd())
	cmd.AddCommand(TopicListCmd())
	cmd.AddCommand(TopicDeleteCmd())

	return cmd
}

func TopicCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a topic term",
		Long:  "Create a topic term mapping a path pattern to a topic ID",
		RunE:  runTopicCreate,
	}

	cmd.Flags().StringP("pattern", "p", "", "Path pattern, e.g. /docs/billing/ (required)")
	cmd.Flags().IntP("topic-id", "t", 0, "Topic ID (required)")
	cmd.Flags().StringP("name", "n", "", "Display name")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("pattern")
	cmd.MarkFlagRequired("topic-id")

	return cmd
}

func runTopicCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pattern, _ := cmd.Flags().GetString("pattern")
	topicID, _ := cmd.Flags().GetInt("topic-id")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	topicRepo := repository.NewTopicTermRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	topicSvc := service.NewTopicService(topicRepo, uuidGen)

	term, err := topicSvc.CreateTerm(ctx, pattern, name, topicID)
	if err != nil {
		return fmt.Errorf("failed to create topic term: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":       term.ID,
			"pattern":  term.Pattern,
			"name":     term.Name,
			"topic_id": term.TopicID,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Topic term created: %s → %d (%s)\n", term.Pattern, term.TopicID, term.ID)
	}

	return nil
}

func TopicListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the topic mapping",
		Long:  "List all topic terms in mapping order (longest pattern first)",
		RunE:  runTopicList,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runTopicList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	topicRepo := repository.NewTopicTermRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	topicSvc := service.NewTopicService(topicRepo, uuidGen)

	mapping, err := topicSvc.Mapping(ctx)
	if err != nil {
		return fmt.Errorf("failed to list topic terms: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(mapping, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(mapping) == 0 {
			fmt.Println("No topic terms found")
			return nil
		}
		for _, e := range mapping {
			fmt.Printf("  %s → %d\n", e.Pattern, e.TopicID)
		}
	}

	return nil
}

func TopicDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a topic term",
		Long:  "Delete a topic term by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopicDelete,
	}

	return cmd
}

func runTopicDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	topicRepo := repository.NewTopicTermRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	topicSvc := service.NewTopicService(topicRepo, uuidGen)

	if err := topicSvc.DeleteTerm(ctx, id); err != nil {
		return fmt.Errorf("failed to delete topic term: %w", err)
	}

	fmt.Printf("Topic term %s deleted\n", id)
	return nil
}
