package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"pollblog-backend/service"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ListParams are the query options of a changelist.
type ListParams struct {
	Search  string
	Filters map[string]string
	Order   string
	Page    int
}

// ListResult is one page of a changelist.
type ListResult struct {
	Admin             *ModelAdmin      `json:"admin"`
	Count             int64            `json:"count"`
	Page              int              `json:"page"`
	Pages             int              `json:"pages"`
	Results           []map[string]any `json:"results"`
	DateFilterChoices []string         `json:"date_filter_choices,omitempty"`
}

type registration struct {
	admin  *ModelAdmin
	schema *schema.Schema
}

// WriteHook runs after a committed write, once for every stored state the
// write touched: the new object after a create, the old and new object after
// an update, and the removed object after a delete.
type WriteHook func(ctx context.Context, model string, obj any)

// Site is the registry of every model exposed to staff.
type Site struct {
	db     *gorm.DB
	models map[string]*registration
	order  []string
	hooks  []WriteHook
	now    func() time.Time
	logger *slog.Logger
}

func NewSite(db *gorm.DB, logger *slog.Logger) *Site {
	return &Site{
		db:     db,
		models: make(map[string]*registration),
		now:    time.Now,
		logger: logger.With("component", "admin"),
	}
}

// WithClock replaces the time source used by date filters and computed columns.
func (s *Site) WithClock(now func() time.Time) *Site {
	s.now = now
	return s
}

// OnWrite adds a hook called after every Create, Update and Delete.
func (s *Site) OnWrite(hook WriteHook) *Site {
	s.hooks = append(s.hooks, hook)
	return s
}

func (s *Site) written(ctx context.Context, name string, objs ...any) {
	for _, hook := range s.hooks {
		for _, obj := range objs {
			hook(ctx, name, obj)
		}
	}
}

// Register checks every column the admin names against the model schema.
func (s *Site) Register(m *ModelAdmin) error {
	if m.Name == "" || m.New == nil {
		return errors.New("admin registration needs a name and a constructor")
	}
	if _, ok := s.models[m.Name]; ok {
		return fmt.Errorf("admin model %q already registered", m.Name)
	}

	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(m.New()); err != nil {
		return fmt.Errorf("parse %s: %w", m.Name, err)
	}
	sch := stmt.Schema

	for _, col := range m.ListDisplay {
		if _, computed := m.Computed[col]; !computed && sch.LookUpField(col) == nil {
			return fmt.Errorf("%s: unknown list_display column %q", m.Name, col)
		}
	}
	for _, col := range m.ListFilter {
		f := sch.LookUpField(col)
		if f == nil || (f.DataType != schema.Time && f.DataType != schema.Bool) {
			return fmt.Errorf("%s: list_filter column %q must be a date or boolean", m.Name, col)
		}
	}
	for _, col := range m.SearchFields {
		if f := sch.LookUpField(col); f == nil || f.IndirectFieldType.Kind() != reflect.String {
			return fmt.Errorf("%s: search field %q must be a text column", m.Name, col)
		}
	}
	for _, col := range m.Ordering {
		if sch.LookUpField(strings.TrimPrefix(col, "-")) == nil {
			return fmt.Errorf("%s: unknown ordering column %q", m.Name, col)
		}
	}
	for _, fs := range m.Fieldsets {
		for _, col := range fs.Fields {
			if sch.LookUpField(col) == nil {
				return fmt.Errorf("%s: unknown fieldset column %q", m.Name, col)
			}
		}
	}
	for _, in := range m.Inlines {
		rel, ok := sch.Relationships.Relations[in.Field]
		if !ok || rel.Type != schema.HasMany {
			return fmt.Errorf("%s: inline %q must be a has-many association", m.Name, in.Field)
		}
	}

	s.models[m.Name] = &registration{admin: m, schema: sch}
	s.order = append(s.order, m.Name)
	return nil
}

// Registrations lists the registered admins in registration order.
func (s *Site) Registrations() []*ModelAdmin {
	return lo.Map(s.order, func(name string, _ int) *ModelAdmin {
		return s.models[name].admin
	})
}

func (s *Site) lookup(caller *service.Caller, name string) (*registration, error) {
	if err := service.RequireStaff(caller); err != nil {
		return nil, err
	}
	reg, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return reg, nil
}

// Index returns the registrations visible to a staff caller.
func (s *Site) Index(caller *service.Caller) ([]*ModelAdmin, error) {
	if err := service.RequireStaff(caller); err != nil {
		return nil, err
	}
	return s.Registrations(), nil
}

func (s *Site) List(ctx context.Context, caller *service.Caller, name string, params ListParams) (*ListResult, error) {
	reg, err := s.lookup(caller, name)
	if err != nil {
		return nil, err
	}
	m, sch := reg.admin, reg.schema
	now := s.now()

	scope := func() (*gorm.DB, error) {
		q := s.db.WithContext(ctx).Model(m.New())
		if params.Search != "" && len(m.SearchFields) > 0 {
			conds := make([]string, 0, len(m.SearchFields))
			args := make([]any, 0, len(m.SearchFields))
			for _, col := range m.SearchFields {
				conds = append(conds, sch.LookUpField(col).DBName+" LIKE ?")
				args = append(args, "%"+params.Search+"%")
			}
			q = q.Where(strings.Join(conds, " OR "), args...)
		}
		for col, value := range params.Filters {
			if !lo.Contains(m.ListFilter, col) {
				return nil, fmt.Errorf("%w: %q is not a filter", service.ErrInvalidInput, col)
			}
			f := sch.LookUpField(col)
			if f.DataType == schema.Bool {
				b, err := strconv.ParseBool(value)
				if err != nil {
					return nil, fmt.Errorf("%w: %s expects a boolean", service.ErrInvalidInput, col)
				}
				q = q.Where(f.DBName+" = ?", b)
				continue
			}
			from, to, ok, err := dateRange(value, now)
			if err != nil {
				return nil, err
			}
			if ok {
				q = q.Where(f.DBName+" >= ? AND "+f.DBName+" < ?", from.UTC(), to.UTC())
			}
		}
		return q, nil
	}

	q, err := scope()
	if err != nil {
		return nil, err
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", name, err)
	}

	ordering := m.Ordering
	if params.Order != "" {
		if sch.LookUpField(strings.TrimPrefix(params.Order, "-")) == nil {
			return nil, fmt.Errorf("%w: cannot order by %q", service.ErrInvalidInput, params.Order)
		}
		ordering = []string{params.Order}
	}

	perPage := m.perPage()
	page := max(params.Page, 1)
	q, _ = scope()
	for _, col := range ordering {
		q = q.Order(orderClause(sch, col))
	}
	if pk := sch.PrioritizedPrimaryField; pk != nil {
		desc := len(ordering) > 0 && strings.HasPrefix(ordering[0], "-")
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: pk.DBName}, Desc: desc})
	}

	rows := reflect.New(reflect.SliceOf(sch.ModelType))
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Find(rows.Interface()).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}

	result := &ListResult{
		Admin:   m,
		Count:   count,
		Page:    page,
		Pages:   int((count + int64(perPage) - 1) / int64(perPage)),
		Results: make([]map[string]any, 0, rows.Elem().Len()),
	}
	for i := 0; i < rows.Elem().Len(); i++ {
		result.Results = append(result.Results, s.row(ctx, reg, rows.Elem().Index(i), now))
	}
	if len(m.ListFilter) > 0 {
		result.DateFilterChoices = DateFilterChoices
	}
	return result, nil
}

func orderClause(sch *schema.Schema, col string) clause.OrderByColumn {
	desc := strings.HasPrefix(col, "-")
	f := sch.LookUpField(strings.TrimPrefix(col, "-"))
	return clause.OrderByColumn{Column: clause.Column{Name: f.DBName}, Desc: desc}
}

func (s *Site) row(ctx context.Context, reg *registration, value reflect.Value, now time.Time) map[string]any {
	row := make(map[string]any, len(reg.admin.ListDisplay)+1)
	if pk := reg.schema.PrioritizedPrimaryField; pk != nil {
		row[pk.DBName], _ = pk.ValueOf(ctx, value)
	}
	for _, col := range reg.admin.ListDisplay {
		if fn, ok := reg.admin.Computed[col]; ok {
			row[col] = fn(value.Addr().Interface(), now)
			continue
		}
		row[col], _ = reg.schema.LookUpField(col).ValueOf(ctx, value)
	}
	return row
}

// Get loads one object with its inline rows.
func (s *Site) Get(ctx context.Context, caller *service.Caller, name string, id uint) (any, error) {
	reg, err := s.lookup(caller, name)
	if err != nil {
		return nil, err
	}
	return s.load(s.db.WithContext(ctx), reg, id)
}

func (s *Site) load(db *gorm.DB, reg *registration, id uint) (any, error) {
	obj := reg.admin.New()
	q := db
	for _, in := range reg.admin.Inlines {
		q = q.Preload(in.Field, func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
	}
	if err := q.First(obj, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrObjectNotFound, reg.admin.Name, id)
		}
		return nil, err
	}
	return obj, nil
}

// Create decodes body into a new object, inline rows included.
func (s *Site) Create(ctx context.Context, caller *service.Caller, name string, body []byte) (any, error) {
	reg, err := s.lookup(caller, name)
	if err != nil {
		return nil, err
	}

	obj := reg.admin.New()
	if err := json.Unmarshal(body, obj); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	value := reflect.Indirect(reflect.ValueOf(obj))
	if pk := reg.schema.PrioritizedPrimaryField; pk != nil {
		if err := pk.Set(ctx, value, 0); err != nil {
			return nil, err
		}
	}
	if err := s.validate(reg, obj); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx)
	if omit := s.nonInlineAssociations(reg); len(omit) > 0 {
		q = q.Omit(omit...)
	}
	if err := q.Create(obj).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	s.logger.Info("object created", "model", name)
	s.written(ctx, name, obj)
	return obj, nil
}

// Update applies body over the stored object. Inline rows present in body
// replace the stored ones: rows with an id are updated, rows without are
// inserted, and rows left out are deleted.
func (s *Site) Update(ctx context.Context, caller *service.Caller, name string, id uint, body []byte) (any, error) {
	reg, err := s.lookup(caller, name)
	if err != nil {
		return nil, err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}

	var previous, result any
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if previous, err = s.load(tx, reg, id); err != nil {
			return err
		}
		obj, err := s.load(tx, reg, id)
		if err != nil {
			return err
		}
		value := reflect.Indirect(reflect.ValueOf(obj))

		var replaced []*schema.Relationship
		for _, in := range reg.admin.Inlines {
			rel := reg.schema.Relationships.Relations[in.Field]
			if _, ok := keys[jsonName(rel.Field)]; ok {
				// stale rows must not survive the decode below
				rel.Field.ReflectValueOf(ctx, value).Set(reflect.Zero(rel.Field.FieldType))
				replaced = append(replaced, rel)
			}
		}

		if err := json.Unmarshal(body, obj); err != nil {
			return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		if err := reg.schema.PrioritizedPrimaryField.Set(ctx, value, id); err != nil {
			return err
		}
		if err := s.validate(reg, obj); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(obj).Error; err != nil {
			return fmt.Errorf("save %s %d: %w", name, id, err)
		}
		for _, rel := range replaced {
			if err := syncInline(ctx, tx, rel, value, id); err != nil {
				return err
			}
		}

		result, err = s.load(tx, reg, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("object updated", "model", name, "id", id)
	s.written(ctx, name, previous, result)
	return result, nil
}

func syncInline(ctx context.Context, tx *gorm.DB, rel *schema.Relationship, parent reflect.Value, parentID uint) error {
	fk := rel.References[0].ForeignKey
	pk := rel.FieldSchema.PrioritizedPrimaryField
	rows := rel.Field.ReflectValueOf(ctx, parent)

	kept := make([]any, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		row := reflect.Indirect(rows.Index(i))
		if err := fk.Set(ctx, row, parentID); err != nil {
			return err
		}
		if err := tx.Save(row.Addr().Interface()).Error; err != nil {
			return fmt.Errorf("save %s: %w", rel.FieldSchema.Table, err)
		}
		id, _ := pk.ValueOf(ctx, row)
		kept = append(kept, id)
	}

	q := tx.Where(fk.DBName+" = ?", parentID)
	if len(kept) > 0 {
		q = q.Where(pk.DBName+" NOT IN ?", kept)
	}
	return q.Delete(reflect.New(rel.FieldSchema.ModelType).Interface()).Error
}

// Delete removes the object and every has-many row that belongs to it.
func (s *Site) Delete(ctx context.Context, caller *service.Caller, name string, id uint) error {
	reg, err := s.lookup(caller, name)
	if err != nil {
		return err
	}

	var removed any
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if removed, err = s.load(tx, reg, id); err != nil {
			return err
		}
		for _, rel := range reg.schema.Relationships.HasMany {
			fk := rel.References[0].ForeignKey
			child := reflect.New(rel.FieldSchema.ModelType).Interface()
			if err := tx.Where(fk.DBName+" = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("delete %s: %w", rel.FieldSchema.Table, err)
			}
		}
		res := tx.Delete(reg.admin.New(), id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s %d", ErrObjectNotFound, name, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("object deleted", "model", name, "id", id)
	s.written(ctx, name, removed)
	return nil
}

func (s *Site) validate(reg *registration, obj any) error {
	if reg.admin.Validate == nil {
		return nil
	}
	if err := reg.admin.Validate(obj); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func (s *Site) nonInlineAssociations(reg *registration) []string {
	return lo.Filter(lo.Keys(reg.schema.Relationships.Relations), func(name string, _ int) bool {
		return !reg.admin.hasInline(name)
	})
}

func jsonName(f *schema.Field) string {
	tag := f.StructField.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}
