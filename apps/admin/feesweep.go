package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/shule/core/billing"
	logsvc "github.com/trezcool/shule/services/logger"
)

// feeSweep runs a single overdue-fee sweep pass and reports the count.
func (cli *commandLine) feeSweep() error {
	sweeper := billing.NewSweeper(
		cli.feeRepo,
		logsvc.NewStdLogger(log.New(os.Stdout, "SWEEP : ", log.LstdFlags)),
		nil,
	)
	swept, err := sweeper.Run(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("marked %d fee record(s) unpaid", swept)
	return nil
}
