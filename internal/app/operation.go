package app

import (
	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/database"
)

// Operation names recorded in the ledger.
const (
	OpScan         = "scan"
	OpResurrect    = "resurrect"
	OpAlertRead    = "alerts-read"
	OpAlertAck     = "alerts-ack"
	OpAlertClear   = "alerts-clear"
	OpAlertImport  = "alerts-import"
	OpSettingsSave = "settings-save"
	OpTokenSet     = "token-set"
	OpAutoStart    = "autostart"
	OpArchiveSetup = "archive-setup"
	OpArchivePush  = "archive-push"
	OpArchivePull  = "archive-pull"
)

// Operation tracks a CLI operation that may mutate the cemetery.
// Operations are created in memory with ID=0. Only mutating commands
// persist them, which gives them an increasing ID from the ledger.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string               // database.StatusCompleted or database.StatusFailed
	Result     *cemetery.ScanResult // set by scans only
}

// NewOperation creates a new in-memory operation that is assumed to succeed.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     database.StatusCompleted,
	}
}

// Persisted returns true if this operation has been saved to the ledger.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Observe records err, if any, as the operation's outcome and returns it.
func (op *Operation) Observe(err error) error {
	if err != nil {
		op.Status = database.StatusFailed
	}
	return err
}
