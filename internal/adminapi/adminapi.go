// Package adminapi implements the register/update/delete/show/move
// operations spec.md §4.1 describes: transaction-scoped catalog mutations,
// input validation, and bulk dbname expansion. The CLI (cmd/pgbackman)
// is reduced to input collection, one API call, and output formatting —
// all defaulting of empty string to "use stored default" happens here,
// never in the shell layer.
package adminapi

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/cronexpr"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// knownPgDumpReleases is the set pg_dump release must belong to, per
// spec.md §4.1. An empty string means "use the source cluster's version".
var knownPgDumpReleases = map[string]bool{
	"": true, "12": true, "13": true, "14": true, "15": true, "16": true, "17": true,
}

// excludedSystemDatabases are never included in a #all_databases# expansion.
var excludedSystemDatabases = map[string]bool{
	"template0": true, "template1": true, "postgres": true,
}

const (
	macroAllDatabases             = "#all_databases#"
	macroWithoutBackupDefinitions = "#databases_without_backup_definitions#"
	// macroWithoutBackupsSynonym is the inconsistently-named variant the
	// original source also accepts in some branches (spec.md §9 Open
	// Questions). Treated identically to macroWithoutBackupDefinitions.
	macroWithoutBackupsSynonym = "#databases_without_backups#"
)

// API wraps a catalog.Store with the validation and defaulting logic the
// Admin API surface performs before any catalog mutation.
type API struct {
	store *catalog.Store
}

// New builds an API over store.
func New(store *catalog.Store) *API {
	return &API{store: store}
}

// Session carries the per-invocation context the source kept as global
// mutable state (current backup server, output format), made explicit per
// spec.md's DESIGN NOTES.
type Session struct {
	DefaultBackupServerID int64
}

// RegisterBackupDefinitionInput collects the raw, possibly-empty-string CLI
// input for register_backup_definition before validation/defaulting.
type RegisterBackupDefinitionInput struct {
	BackupServerID      int64
	PgSQLNodeID         int64
	Dbname              string // may be a bulk macro
	Minute, Hour        string
	DayOfMonth, Month   string
	Weekday             string
	Code                string
	Encryption           bool
	RetentionPeriod      string // Go duration string, e.g. "168h"
	RetentionRedundancy  int
	ExtraParameters      string
	JobStatus            string
	Remarks              string
	MinuteIntervalConfig string // e.g. "0-29", used to draw Minute when Minute == ""
	HourIntervalConfig   string
}

// ExpandDbname resolves a bulk dbname specifier against the databases
// actually present on nodeID, per spec.md §4.1: #all_databases# expands to
// every database except template0/template1/postgres, minus exceptions;
// #databases_without_backup_definitions# (and its #databases_without_backups#
// synonym — see DESIGN.md) additionally removes databases already covered by
// an active BackupDefinition. A plain dbname (no macro) is returned as a
// single-element slice unchanged.
func (a *API) ExpandDbname(ctx context.Context, nodeID int64, dbname string, exceptions []string) ([]string, error) {
	switch dbname {
	case macroAllDatabases, macroWithoutBackupDefinitions, macroWithoutBackupsSynonym:
	default:
		return []string{dbname}, nil
	}

	all, err := a.store.DatabasesOnNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(exceptions)+len(excludedSystemDatabases))
	for k := range excludedSystemDatabases {
		excluded[k] = true
	}
	for _, e := range exceptions {
		excluded[e] = true
	}

	var covered map[string]bool
	if dbname == macroWithoutBackupDefinitions || dbname == macroWithoutBackupsSynonym {
		defs, err := a.store.ActiveBackupDefinitionsForNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		covered = make(map[string]bool, len(defs))
		for _, d := range defs {
			covered[d.Dbname] = true
		}
	}

	var result []string
	for _, db := range all {
		if excluded[db] || covered[db] {
			continue
		}
		result = append(result, db)
	}
	return result, nil
}

// RegisterBackupDefinition validates input, resolves minute/hour/dbname
// defaults and bulk expansion, and registers one BackupDefinition per
// resolved database name. A single invalid field aborts before any catalog
// row is written.
func (a *API) RegisterBackupDefinition(ctx context.Context, in RegisterBackupDefinitionInput, exceptions []string) ([]int64, error) {
	code := catalog.BackupCode(strings.ToUpper(in.Code))
	if err := validateCode(code); err != nil {
		return nil, err
	}
	jobStatus := catalog.JobStatus(strings.ToUpper(in.JobStatus))
	if jobStatus == "" {
		jobStatus = catalog.JobActive
	}
	if err := validateJobStatus(jobStatus); err != nil {
		return nil, err
	}
	retention, err := parseDuration(in.RetentionPeriod)
	if err != nil {
		return nil, err
	}

	dbnames, err := a.ExpandDbname(ctx, in.PgSQLNodeID, in.Dbname, exceptions)
	if err != nil {
		return nil, err
	}
	if len(dbnames) == 0 {
		return nil, pgerr.New(pgerr.KindValidation, "dbname expansion produced no databases to register")
	}

	var ids []int64
	for _, dbname := range dbnames {
		minute, hour := in.Minute, in.Hour
		if minute == "" && in.MinuteIntervalConfig != "" {
			m, err := cronexpr.PickFromInterval(in.MinuteIntervalConfig, in.PgSQLNodeID)
			if err != nil {
				return nil, err
			}
			minute = strconv.Itoa(m)
		}
		if hour == "" && in.HourIntervalConfig != "" {
			h, err := cronexpr.PickFromInterval(in.HourIntervalConfig, in.PgSQLNodeID)
			if err != nil {
				return nil, err
			}
			hour = strconv.Itoa(h)
		}

		schedule := catalog.Schedule{
			Minute: defaultStar(minute), Hour: defaultStar(hour),
			DayOfMonth: defaultStar(in.DayOfMonth), Month: defaultStar(in.Month), Weekday: defaultStar(in.Weekday),
		}
		if err := cronexpr.ValidateSchedule(schedule); err != nil {
			return nil, err
		}

		def := catalog.BackupDefinition{
			BackupServerID: in.BackupServerID, PgSQLNodeID: in.PgSQLNodeID, Dbname: dbname,
			Schedule: schedule, Code: code, Encryption: in.Encryption,
			RetentionPeriod: retention, RetentionRedundancy: in.RetentionRedundancy,
			ExtraParameters: in.ExtraParameters, JobStatus: jobStatus, Remarks: in.Remarks,
		}
		id, err := a.store.RegisterBackupDefinition(ctx, def)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UpdateBackupDefinitionInput collects update_backup_definition's raw input.
// Schedule fields left empty keep their stored value; JobStatus/Code, if
// set, are validated like the register path.
type UpdateBackupDefinitionInput struct {
	DefID               int64
	Minute, Hour        string
	DayOfMonth, Month   string
	Weekday             string
	Code                string
	// Encryption is "true", "false", or "" to keep the stored value (the
	// original's interactive '#'-means-keep-current convention made
	// explicit, since a bare bool can't distinguish "unset" from "false").
	Encryption          string
	RetentionPeriod     string
	RetentionRedundancy int
	ExtraParameters     string
	JobStatus           string
	Remarks             string
}

// UpdateBackupDefinition validates input and updates an existing
// BackupDefinition, reading its current row first so that empty fields in
// in keep their stored value rather than clobbering it.
func (a *API) UpdateBackupDefinition(ctx context.Context, in UpdateBackupDefinitionInput) error {
	current, err := a.store.BackupDefinitionByID(ctx, in.DefID)
	if err != nil {
		return err
	}

	if in.Code != "" {
		code := catalog.BackupCode(strings.ToUpper(in.Code))
		if err := validateCode(code); err != nil {
			return err
		}
		current.Code = code
	}
	if in.JobStatus != "" {
		jobStatus := catalog.JobStatus(strings.ToUpper(in.JobStatus))
		if err := validateJobStatus(jobStatus); err != nil {
			return err
		}
		current.JobStatus = jobStatus
	}
	if in.RetentionPeriod != "" {
		retention, err := parseDuration(in.RetentionPeriod)
		if err != nil {
			return err
		}
		current.RetentionPeriod = retention
	}
	if in.RetentionRedundancy > 0 {
		current.RetentionRedundancy = in.RetentionRedundancy
	}
	if in.ExtraParameters != "" {
		current.ExtraParameters = in.ExtraParameters
	}
	if in.Remarks != "" {
		current.Remarks = in.Remarks
	}

	schedule := current.Schedule
	if in.Minute != "" {
		schedule.Minute = in.Minute
	}
	if in.Hour != "" {
		schedule.Hour = in.Hour
	}
	if in.DayOfMonth != "" {
		schedule.DayOfMonth = in.DayOfMonth
	}
	if in.Month != "" {
		schedule.Month = in.Month
	}
	if in.Weekday != "" {
		schedule.Weekday = in.Weekday
	}
	if err := cronexpr.ValidateSchedule(schedule); err != nil {
		return err
	}
	current.Schedule = schedule
	switch in.Encryption {
	case "true":
		current.Encryption = true
	case "false":
		current.Encryption = false
	case "":
	default:
		return pgerr.New(pgerr.KindValidation, "encryption must be true, false, or empty")
	}

	return a.store.UpdateBackupDefinition(ctx, current)
}

func validateCode(code catalog.BackupCode) error {
	switch code {
	case catalog.CodeCluster, catalog.CodeFull, catalog.CodeSchema, catalog.CodeData:
		return nil
	default:
		return pgerr.New(pgerr.KindValidation, "code must be one of CLUSTER, FULL, SCHEMA, DATA")
	}
}

func validateJobStatus(s catalog.JobStatus) error {
	switch s {
	case catalog.JobActive, catalog.JobStopped:
		return nil
	default:
		return pgerr.New(pgerr.KindValidation, "job_status must be one of ACTIVE, STOPPED")
	}
}

func validatePgDumpRelease(release string) error {
	if !knownPgDumpReleases[release] {
		return pgerr.New(pgerr.KindValidation, "pg_dump release \""+release+"\" is not a known version")
	}
	return nil
}

func defaultStar(field string) string {
	if field == "" {
		return "*"
	}
	return field
}

// parseDuration accepts an empty string as "no retention period configured"
// (zero duration) and otherwise delegates to time.ParseDuration.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, pgerr.Wrap(pgerr.KindValidation, "invalid retention_period \""+s+"\"", err)
	}
	return d, nil
}
