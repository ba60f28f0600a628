package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	fix := flag.Bool("fix", false, "Record an Adjustment movement so the ledger explains current stock for every drifted ingredient")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetUsernameInContext(context.Background(), "StockAudit")
	logger := config.GetLogger()

	// one audit at a time across instances
	err := workflow.WithAdvisoryLock(ctx, "stock-audit", func() error {
		drifts, err := models.AuditIngredientStock(ctx)
		if err != nil {
			return err
		}
		if len(drifts) == 0 {
			fmt.Println("No stock drift found")
			return nil
		}
		for _, d := range drifts {
			fmt.Printf("ingredient=%d name=%q expected=%s actual=%s\n", d.IngredientId, d.IngredientName, d.Expected, d.Actual)
		}
		if !*fix {
			return nil
		}
		movement, err := models.RecordStockDriftAdjustment(ctx, drifts)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"movement_id": movement.ID,
			"lines":       len(movement.Lines),
		}).Info("stock drift adjustment recorded")
		fmt.Printf("Recorded adjustment movement %d for %d ingredients\n", movement.ID, len(movement.Lines))
		return nil
	})
	if err != nil {
		config.LogError(logger, "stock-audit", "main", "audit", nil, err)
		fmt.Fprintf(os.Stderr, "stock audit failed: %v\n", err)
		os.Exit(1)
	}
}
