package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cychuang/campusbot/internal/knowledge"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load knowledge records from a YAML file",
	Long: `Populates the courses and QA collections from a YAML file, writing
to the SQLite store and, when BLEVE_INDEX_PATH is set, the bleve index.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "knowledge.yaml", "YAML file with courses and QA records")
	rootCmd.AddCommand(seedCmd)
}

// seedData mirrors the YAML layout:
//
//	courses:
//	  - title: 英文通識
//	    time: 週三 3-4節
//	qa:
//	  - question: 停車場在哪裡
//	    answer: 活動中心地下室
type seedData struct {
	Courses []knowledge.Course `yaml:"courses"`
	QA      []knowledge.QA     `yaml:"qa"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	ctx := cmd.Context()

	store, err := knowledge.OpenSQLite(cfg.KnowledgeDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var index *knowledge.BleveIndex
	if cfg.BleveIndexPath != "" {
		index, err = knowledge.OpenBleve(cfg.BleveIndexPath)
		if err != nil {
			return err
		}
		defer index.Close()
	}

	for _, c := range data.Courses {
		if err := store.AddCourse(ctx, c); err != nil {
			return err
		}
		if index != nil {
			if err := index.IndexCourse(uuid.NewString(), c); err != nil {
				return fmt.Errorf("failed to index course %q: %w", c.Title, err)
			}
		}
	}
	for _, q := range data.QA {
		if err := store.AddQA(ctx, q); err != nil {
			return err
		}
		if index != nil {
			if err := index.IndexQA(uuid.NewString(), q); err != nil {
				return fmt.Errorf("failed to index qa %q: %w", q.Question, err)
			}
		}
	}

	log.Printf("Seeded %d courses and %d QA records", len(data.Courses), len(data.QA))
	return nil
}
