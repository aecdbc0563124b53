package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"ledgerplan/internal/amqp"
	"ledgerplan/internal/core"
)

type requestCmd struct {
	report   string
	period   string
	category string
	customer string
}

func (*requestCmd) Name() string     { return "request" }
func (*requestCmd) Synopsis() string { return "queue a report for the worker" }
func (*requestCmd) Usage() string {
	return `request -report <name> [-period YYYY-MM]:
  Publish a report request to AMQP. The worker posts the result to the
  result queue.
`
}

func (c *requestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.report, "report", "", "catalog report name")
	f.StringVar(&c.period, "period", "", "target month YYYY-MM (default: current month)")
	f.StringVar(&c.category, "category", "", "only this category")
	f.StringVar(&c.customer, "customer", "", "only this customer")
}

func (c *requestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.report == "" {
		return usage(f, "request: -report is required")
	}
	period, err := parsePeriodFlag(c.period, time.Now())
	if err != nil {
		return usage(f, err.Error())
	}

	cfg, _, err := setup()
	if err != nil {
		return fail(err)
	}
	if cfg.AMQPURL == "" {
		return fail(fmt.Errorf("AMQP_URL is not set"))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPResultQueue)
	if err != nil {
		return fail(err)
	}
	defer client.Close()

	msg := amqp.NewReportRequestMessage(c.report, period.String(), core.Filter{Category: c.category, Customer: c.customer})
	if err := msg.Validate(); err != nil {
		return fail(err)
	}
	if err := client.PublishReportRequest(ctx, msg); err != nil {
		return fail(err)
	}
	fmt.Println(msg.ID)
	return subcommands.ExitSuccess
}
