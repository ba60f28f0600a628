package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	file := flag.String("file", "", "Path to the .xlsx workbook (Sheet1, header: event_id, staff_id, billing_modality, base_rate, hours_worked, overtime_rate)")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before importing")
	flag.Parse()

	if strings.TrimSpace(*file) == "" || !strings.HasSuffix(strings.ToLower(*file), ".xlsx") {
		fmt.Fprintln(os.Stderr, "-file must point to an .xlsx workbook")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if *migrate {
		models.MigrateTable()
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := utils.SetUsernameInContext(context.Background(), "StaffAssignmentImport")
	count, err := models.ImportStaffAssignmentsFromXlsx(ctx, f)
	if err != nil {
		config.LogError(config.GetLogger(), "staff-assignment-import", "main", "ImportStaffAssignmentsFromXlsx", *file, err)
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	config.GetLogger().WithFields(logrus.Fields{
		"file":     *file,
		"imported": count,
	}).Info("staff assignments imported")
	fmt.Printf("Imported %d staff assignments from %s\n", count, *file)
}
