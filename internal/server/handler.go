package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/go-tangra/go-tangra-bios/internal/bios"
	"github.com/go-tangra/go-tangra-bios/internal/classify"
	"github.com/go-tangra/go-tangra-bios/internal/collector"
	"github.com/go-tangra/go-tangra-bios/internal/convert"
	"github.com/go-tangra/go-tangra-bios/internal/logging"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
	"github.com/go-tangra/go-tangra-bios/internal/scewin"
	"github.com/go-tangra/go-tangra-bios/internal/store"
)

// Operation names reported to middleware and metrics.
const (
	OperationListSettings   = "/biosctl.v1.BIOSService/ListSettings"
	OperationGetSetting     = "/biosctl.v1.BIOSService/GetSetting"
	OperationSetSetting     = "/biosctl.v1.BIOSService/SetSetting"
	OperationFind           = "/biosctl.v1.BIOSService/Find"
	OperationPerformance    = "/biosctl.v1.BIOSService/Performance"
	OperationBackup         = "/biosctl.v1.BIOSService/Backup"
	OperationRestore        = "/biosctl.v1.BIOSService/Restore"
	OperationDiff           = "/biosctl.v1.BIOSService/Diff"
	OperationCreateSnapshot = "/biosctl.v1.HistoryService/CreateSnapshot"
	OperationListSnapshots  = "/biosctl.v1.HistoryService/ListSnapshots"
	OperationGetSnapshot    = "/biosctl.v1.HistoryService/GetSnapshot"
	OperationDeleteSnapshot = "/biosctl.v1.HistoryService/DeleteSnapshot"
	OperationListChanges    = "/biosctl.v1.HistoryService/ListChanges"
)

// BIOS is the settings accessor served over HTTP. *bios.Service implements
// it.
type BIOS interface {
	GetSettingValue(ctx context.Context, name string) (int64, error)
	GetSettingType(ctx context.Context, name string) (scedump.Type, error)
	SetSettingValue(ctx context.Context, name string, v scedump.Value) error
	ParseAllSettings(ctx context.Context) (*scedump.Settings, error)
	Find(ctx context.Context, finder classify.Finder) ([]string, error)
	FindAllPerformanceParameters(ctx context.Context) (map[classify.Bucket][]string, error)
	Backup(ctx context.Context) error
	BackupAvailable() bool
	RestoreDefaults(ctx context.Context) bool
	DiffAgainstBackup(ctx context.Context) (string, error)
}

// History is the snapshot and change storage. *store.Store implements it.
type History interface {
	InsertSnapshot(ctx context.Context, rec *store.SnapshotRecord) (int64, time.Time, error)
	GetSnapshot(ctx context.Context, id int64) (*store.SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id int64) error
	ListSnapshots(ctx context.Context, f store.SnapshotFilter) ([]store.SnapshotRecord, int, error)
	ListChanges(ctx context.Context, f store.ChangeFilter) ([]store.ChangeRecord, int, error)
}

// FirmwareFunc returns the identity of the machine a snapshot is taken on.
type FirmwareFunc func() (collector.Firmware, error)

// Handler serves the REST API.
type Handler struct {
	bios     BIOS
	history  History
	firmware FirmwareFunc
	logger   *slog.Logger
}

// NewHandler creates a Handler. firmware may be nil, in which case
// collector.Collect is used.
func NewHandler(b BIOS, h History, firmware FirmwareFunc, logger *slog.Logger) *Handler {
	if firmware == nil {
		firmware = collector.Collect
	}
	return &Handler{bios: b, history: h, firmware: firmware, logger: logging.OrDiscard(logger)}
}

// Register adds the API routes to srv.
func (h *Handler) Register(srv *kratoshttp.Server) {
	r := srv.Route("/")
	r.GET("/v1/settings", unary(OperationListSettings, h.listSettings))
	r.GET("/v1/settings/{name}", unary(OperationGetSetting, h.getSetting))
	r.PUT("/v1/settings/{name}", unary(OperationSetSetting, h.setSetting))
	r.GET("/v1/find/{kind}", unary(OperationFind, h.find))
	r.GET("/v1/performance", unary(OperationPerformance, h.performance))
	r.POST("/v1/backup", unary(OperationBackup, h.backup))
	r.POST("/v1/restore", unary(OperationRestore, h.restore))
	r.GET("/v1/diff", unary(OperationDiff, h.diff))
	r.POST("/v1/snapshots", unary(OperationCreateSnapshot, h.createSnapshot))
	r.GET("/v1/snapshots", unary(OperationListSnapshots, h.listSnapshots))
	r.GET("/v1/snapshots/{id}", unary(OperationGetSnapshot, h.getSnapshot))
	r.DELETE("/v1/snapshots/{id}", unary(OperationDeleteSnapshot, h.deleteSnapshot))
	r.GET("/v1/changes", unary(OperationListChanges, h.listChanges))
}

// unary adapts fn to a route handler that runs through the server
// middleware chain.
func unary(operation string, fn func(kratoshttp.Context) (any, error)) kratoshttp.HandlerFunc {
	return func(ctx kratoshttp.Context) error {
		kratoshttp.SetOperation(ctx, operation)
		m := ctx.Middleware(func(context.Context, any) (any, error) {
			return fn(ctx)
		})
		out, err := m(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

// SettingList is the ListSettings reply.
type SettingList struct {
	Settings []*scedump.Record `json:"settings"`
	Total    int               `json:"total"`
}

func (h *Handler) listSettings(ctx kratoshttp.Context) (any, error) {
	q := ctx.Query()
	category := q.Get("category")
	performanceOnly, err := queryBool(q.Get("performance"))
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "performance must be a boolean")
	}

	settings, err := h.bios.ParseAllSettings(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out := SettingList{Settings: []*scedump.Record{}}
	for _, rec := range settings.Records() {
		if category != "" && string(rec.Category) != category {
			continue
		}
		if performanceOnly && !rec.IsPerformanceRelated {
			continue
		}
		out.Settings = append(out.Settings, rec)
	}
	out.Total = len(out.Settings)
	return out, nil
}

// Setting is the GetSetting reply.
type Setting struct {
	Name  string       `json:"name"`
	Value int64        `json:"value"`
	Type  scedump.Type `json:"type"`
}

func (h *Handler) getSetting(ctx kratoshttp.Context) (any, error) {
	name := ctx.Vars().Get("name")
	if strings.TrimSpace(name) == "" {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "name is required")
	}

	value, err := h.bios.GetSettingValue(ctx, name)
	if err != nil {
		return nil, toStatus(err)
	}
	typ, err := h.bios.GetSettingType(ctx, name)
	if err != nil {
		return nil, toStatus(err)
	}
	return Setting{Name: name, Value: value, Type: typ}, nil
}

// SetSettingRequest is the SetSetting body.
type SetSettingRequest struct {
	Value scedump.Value `json:"value"`
}

// SetSettingReply is the SetSetting reply.
type SetSettingReply struct {
	Name    string        `json:"name"`
	Value   scedump.Value `json:"value"`
	Applied bool          `json:"applied"`
}

func (h *Handler) setSetting(ctx kratoshttp.Context) (any, error) {
	name := ctx.Vars().Get("name")
	if strings.TrimSpace(name) == "" {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "name is required")
	}

	var in SetSettingRequest
	if err := ctx.Bind(&in); err != nil {
		return nil, err
	}
	if in.Value.Kind() == scedump.KindInvalid {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "value is required")
	}

	if err := h.bios.SetSettingValue(ctx, name, in.Value); err != nil {
		return nil, toStatus(err)
	}
	return SetSettingReply{Name: name, Value: in.Value, Applied: true}, nil
}

// FindReply is the Find reply.
type FindReply struct {
	Finder   classify.Finder `json:"finder"`
	Settings []string        `json:"settings"`
}

func (h *Handler) find(ctx kratoshttp.Context) (any, error) {
	finder, err := classify.ParseFinder(ctx.Vars().Get("kind"))
	if err != nil {
		return nil, kerrors.NotFound("FINDER_NOT_FOUND", err.Error())
	}

	names, err := h.bios.Find(ctx, finder)
	if err != nil {
		return nil, toStatus(err)
	}
	if names == nil {
		names = []string{}
	}
	return FindReply{Finder: finder, Settings: names}, nil
}

// PerformanceReply is the Performance reply.
type PerformanceReply struct {
	Buckets map[classify.Bucket][]string `json:"buckets"`
}

func (h *Handler) performance(ctx kratoshttp.Context) (any, error) {
	buckets, err := h.bios.FindAllPerformanceParameters(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return PerformanceReply{Buckets: buckets}, nil
}

// BackupReply is the Backup and Restore reply.
type BackupReply struct {
	BackupAvailable bool `json:"backup_available"`
	Restored        bool `json:"restored,omitempty"`
}

func (h *Handler) backup(ctx kratoshttp.Context) (any, error) {
	if err := h.bios.Backup(ctx); err != nil {
		return nil, toStatus(err)
	}
	return BackupReply{BackupAvailable: true}, nil
}

func (h *Handler) restore(ctx kratoshttp.Context) (any, error) {
	if !h.bios.BackupAvailable() {
		return nil, toStatus(bios.ErrNoBackup)
	}
	if !h.bios.RestoreDefaults(ctx) {
		return nil, kerrors.InternalServer("RESTORE_FAILED", "restore from backup failed; check the server log")
	}
	return BackupReply{BackupAvailable: true, Restored: true}, nil
}

// DiffReply is the Diff reply.
type DiffReply struct {
	Changed bool   `json:"changed"`
	Diff    string `json:"diff"`
}

func (h *Handler) diff(ctx kratoshttp.Context) (any, error) {
	d, err := h.bios.DiffAgainstBackup(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return DiffReply{Changed: d != "", Diff: d}, nil
}

// CreateSnapshotReply is the CreateSnapshot reply.
type CreateSnapshotReply struct {
	ID           int64     `json:"id"`
	SettingCount int       `json:"setting_count"`
	StoredAt     time.Time `json:"stored_at"`
}

func (h *Handler) createSnapshot(ctx kratoshttp.Context) (any, error) {
	settings, err := h.bios.ParseAllSettings(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	fw, err := h.firmware()
	if err != nil {
		h.logger.Warn("firmware identity incomplete", "error", err)
	}

	rec, err := convert.SettingsToSnapshot(settings, fw)
	if err != nil {
		return nil, kerrors.InternalServer("CONVERT", err.Error())
	}
	id, storedAt, err := h.history.InsertSnapshot(ctx, rec)
	if err != nil {
		return nil, kerrors.InternalServer("STORE", err.Error())
	}
	return CreateSnapshotReply{ID: id, SettingCount: rec.SettingCount, StoredAt: storedAt}, nil
}

// SnapshotList is the ListSnapshots reply.
type SnapshotList struct {
	Snapshots []convert.Snapshot `json:"snapshots"`
	Total     int                `json:"total"`
}

func (h *Handler) listSnapshots(ctx kratoshttp.Context) (any, error) {
	q := ctx.Query()
	page, pageSize, err := pagination(q.Get("page"), q.Get("page_size"))
	if err != nil {
		return nil, err
	}
	filter := store.SnapshotFilter{
		Hostname:    q.Get("hostname"),
		BIOSVersion: q.Get("bios_version"),
		Page:        page,
		PageSize:    pageSize,
	}
	if filter.TakenAfter, err = queryTime(q.Get("taken_after")); err != nil {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "taken_after must be RFC 3339")
	}
	if filter.TakenBefore, err = queryTime(q.Get("taken_before")); err != nil {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "taken_before must be RFC 3339")
	}

	records, total, err := h.history.ListSnapshots(ctx, filter)
	if err != nil {
		return nil, kerrors.InternalServer("STORE", err.Error())
	}

	out := SnapshotList{Snapshots: make([]convert.Snapshot, 0, len(records)), Total: total}
	for i := range records {
		out.Snapshots = append(out.Snapshots, convert.RecordToSummary(&records[i]))
	}
	return out, nil
}

func (h *Handler) getSnapshot(ctx kratoshttp.Context) (any, error) {
	id, err := pathID(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := h.history.GetSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerrors.NotFound("SNAPSHOT_NOT_FOUND", "snapshot "+strconv.FormatInt(id, 10)+" not found")
		}
		return nil, kerrors.InternalServer("STORE", err.Error())
	}

	snap, err := convert.RecordToSnapshot(rec)
	if err != nil {
		return nil, kerrors.InternalServer("DECODE", err.Error())
	}
	return snap, nil
}

// DeleteSnapshotReply is the DeleteSnapshot reply.
type DeleteSnapshotReply struct {
	ID int64 `json:"id"`
}

func (h *Handler) deleteSnapshot(ctx kratoshttp.Context) (any, error) {
	id, err := pathID(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.history.DeleteSnapshot(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kerrors.NotFound("SNAPSHOT_NOT_FOUND", "snapshot "+strconv.FormatInt(id, 10)+" not found")
		}
		return nil, kerrors.InternalServer("STORE", err.Error())
	}
	return DeleteSnapshotReply{ID: id}, nil
}

// ChangeList is the ListChanges reply.
type ChangeList struct {
	Changes []convert.Change `json:"changes"`
	Total   int              `json:"total"`
}

func (h *Handler) listChanges(ctx kratoshttp.Context) (any, error) {
	q := ctx.Query()
	page, pageSize, err := pagination(q.Get("page"), q.Get("page_size"))
	if err != nil {
		return nil, err
	}
	failedOnly, err := queryBool(q.Get("failed"))
	if err != nil {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "failed must be a boolean")
	}
	filter := store.ChangeFilter{
		Setting:    q.Get("setting"),
		FailedOnly: failedOnly,
		Page:       page,
		PageSize:   pageSize,
	}
	if filter.RequestedFrom, err = queryTime(q.Get("since")); err != nil {
		return nil, kerrors.BadRequest("INVALID_ARGUMENT", "since must be RFC 3339")
	}

	records, total, err := h.history.ListChanges(ctx, filter)
	if err != nil {
		return nil, kerrors.InternalServer("STORE", err.Error())
	}

	out := ChangeList{Changes: make([]convert.Change, 0, len(records)), Total: total}
	for i := range records {
		out.Changes = append(out.Changes, convert.RecordToChange(&records[i]))
	}
	return out, nil
}

// toStatus maps accessor errors to HTTP status errors.
func toStatus(err error) error {
	switch {
	case errors.Is(err, scedump.ErrSettingNotFound):
		return kerrors.NotFound("SETTING_NOT_FOUND", err.Error())
	case errors.Is(err, scedump.ErrInvalidValue):
		return kerrors.BadRequest("INVALID_VALUE", err.Error())
	case errors.Is(err, scedump.ErrValueUndetermined), errors.Is(err, scedump.ErrMalformedValue):
		return kerrors.Conflict("VALUE_UNDETERMINED", err.Error())
	case errors.Is(err, bios.ErrNoBackup):
		return kerrors.Conflict("NO_BACKUP", err.Error())
	case errors.Is(err, scewin.ErrToolNotFound), errors.Is(err, scewin.ErrIO):
		return kerrors.ServiceUnavailable("SCE_TOOL", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return kerrors.GatewayTimeout("TIMEOUT", err.Error())
	default:
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
}

func pathID(ctx kratoshttp.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Vars().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, kerrors.BadRequest("INVALID_ARGUMENT", "id must be a positive integer")
	}
	return id, nil
}

func pagination(pageStr, sizeStr string) (page, pageSize int, err error) {
	if pageStr != "" {
		if page, err = strconv.Atoi(pageStr); err != nil || page < 0 {
			return 0, 0, kerrors.BadRequest("INVALID_ARGUMENT", "page must be a non-negative integer")
		}
	}
	if sizeStr != "" {
		if pageSize, err = strconv.Atoi(sizeStr); err != nil || pageSize < 0 {
			return 0, 0, kerrors.BadRequest("INVALID_ARGUMENT", "page_size must be a non-negative integer")
		}
	}
	return page, pageSize, nil
}

func queryBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func queryTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
