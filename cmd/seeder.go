package cmd

import (
	"fmt"
	"log"

	"github.com/finadmin/expense-authorization/internal/authtree"
	authtreePostgres "github.com/finadmin/expense-authorization/internal/authtree/postgres"
	positionDatamodel "github.com/finadmin/expense-authorization/internal/core/datamodel/position"
	"github.com/finadmin/expense-authorization/pkg/logger"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const seedCompanyID = 1

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := gorm.Open(gormPostgres.Open(cfg.Database.Source), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}

		if clearData {
			fmt.Println("Clearing existing data...")
			for _, table := range []string{"level_authorizers", "tree_levels", "authorization_trees", "rejection_records", "approval_decisions", "expenses", "positions"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
		}

		positionIDs := seedPositions(db)
		seedSampleTree(db, positionIDs)

		fmt.Println("Seeding complete")
	},
}

func seedPositions(db *gorm.DB) map[string]int64 {
	positions := []struct {
		Name         string
		Desc         string
		CanAuthorize bool
	}{
		{"Staff", "Regular employee", false},
		{"Team Lead", "First-line approver", true},
		{"Department Head", "Second-line approver", true},
		{"Finance Director", "Final approver for advances", true},
	}

	ids := make(map[string]int64, len(positions))
	for _, p := range positions {
		var existing positionDatamodel.Position
		err := db.Where("company_id = ? AND name = ?", seedCompanyID, p.Name).First(&existing).Error
		if err == nil {
			fmt.Printf("position %q already exists\n", p.Name)
			ids[p.Name] = existing.ID
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("failed to check position %q: %v", p.Name, err)
		}

		row := positionDatamodel.Position{
			CompanyID:    seedCompanyID,
			Name:         p.Name,
			Description:  p.Desc,
			CanAuthorize: p.CanAuthorize,
			IsActive:     true,
		}
		if err := db.Create(&row).Error; err != nil {
			log.Fatalf("failed to insert position %q: %v", p.Name, err)
		}
		fmt.Printf("Seeded position: %s\n", p.Name)
		ids[p.Name] = row.ID
	}
	return ids
}

// seedSampleTree configures a two-level exercised-kind tree for the Staff
// position: Team Lead or Department Head at level 1, Finance Director at
// level 2.
func seedSampleTree(db *gorm.DB, positionIDs map[string]int64) {
	repo := authtreePostgres.NewTreeRepository(db)
	service := authtree.NewService(repo, logger.L())

	staffID, ok := positionIDs["Staff"]
	if !ok {
		log.Fatal("staff position missing; cannot seed sample tree")
	}

	dto := authtree.ReplaceLevelsDTO{
		Levels: [][]authtree.AuthorizerRefDTO{
			{
				{PersonID: "person-lead", DisplayName: "Team Lead"},
				{PersonID: "person-head", DisplayName: "Department Head"},
			},
			{
				{PersonID: "person-finance", DisplayName: "Finance Director"},
			},
		},
	}

	if _, err := service.ReplaceLevels(seedCompanyID, staffID, authtree.KindExercised, dto); err != nil {
		log.Fatalf("failed to seed sample tree: %v", err)
	}
	fmt.Println("Seeded two-level exercised tree for Staff")
}
