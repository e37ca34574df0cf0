package mongostore

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/orderdedup/internal/order"
	"github.com/roach88/orderdedup/internal/pipeline"
)

// fieldNames maps record fields to document fields.
var fieldNames = map[pipeline.Field]string{
	pipeline.FieldID:          "_id",
	pipeline.FieldOrderNumber: "numero_pv",
	pipeline.FieldBranchCode:  "filial_codigo",
	pipeline.FieldBranchName:  "filial_nome",
	pipeline.FieldPartner:     "parceiro",
	pipeline.FieldIssuedAt:    "emissao",
	pipeline.FieldTotal:       "valor_total_pedido",
	pipeline.FieldLoadedAt:    "data_carga",
}

func fieldName(f pipeline.Field) (string, error) {
	name, ok := fieldNames[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return name, nil
}

// orderDoc is the decoded form of a stored document. Loosely typed fields
// stay raw so legacy documents with strings or doubles still load.
type orderDoc struct {
	ID           string        `bson:"_id"`
	OrderNumber  bson.RawValue `bson:"numero_pv"`
	BranchCode   bson.RawValue `bson:"filial_codigo"`
	BranchName   bson.RawValue `bson:"filial_nome"`
	Partner      bson.RawValue `bson:"parceiro"`
	IssuedAt     bson.RawValue `bson:"emissao"`
	Salesperson  bson.RawValue `bson:"vendedor"`
	PaymentTerms bson.RawValue `bson:"condicao_pagamento"`
	Total        bson.RawValue `bson:"valor_total_pedido"`
	Items        []itemDoc     `bson:"itens"`
	LoadedAt     bson.RawValue `bson:"data_carga"`
}

type itemDoc struct {
	ProductCode bson.RawValue `bson:"cod_produto"`
	Description bson.RawValue `bson:"descricao"`
	Quantity    bson.RawValue `bson:"quantidade"`
	UnitPrice   bson.RawValue `bson:"unitario"`
	LineTotal   bson.RawValue `bson:"total_item"`
}

// toDocument renders o without its _id. Null fields are omitted.
func toDocument(o order.Order) (bson.D, error) {
	doc := bson.D{}
	add := func(key string, v any) { doc = append(doc, bson.E{Key: key, Value: v}) }

	if o.OrderNumber != nil {
		add("numero_pv", *o.OrderNumber)
	}
	if o.BranchCode != nil {
		add("filial_codigo", *o.BranchCode)
	}
	if o.BranchName != nil {
		add("filial_nome", *o.BranchName)
	}
	if o.Partner != nil {
		add("parceiro", *o.Partner)
	}
	if o.IssuedAt != nil {
		add("emissao", primitive.NewDateTimeFromTime(*o.IssuedAt))
	}
	if o.Salesperson != nil {
		add("vendedor", *o.Salesperson)
	}
	if o.PaymentTerms != nil {
		add("condicao_pagamento", *o.PaymentTerms)
	}
	if o.Total.Valid {
		d, err := toDecimal128(o.Total.Decimal)
		if err != nil {
			return nil, fmt.Errorf("valor_total_pedido: %w", err)
		}
		add("valor_total_pedido", d)
	}

	items := bson.A{}
	for i, it := range o.Items {
		q, err := toDecimal128(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("itens[%d].quantidade: %w", i, err)
		}
		u, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("itens[%d].unitario: %w", i, err)
		}
		lt, err := toDecimal128(it.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("itens[%d].total_item: %w", i, err)
		}
		items = append(items, bson.D{
			{Key: "cod_produto", Value: it.ProductCode},
			{Key: "descricao", Value: it.Description},
			{Key: "quantidade", Value: q},
			{Key: "unitario", Value: u},
			{Key: "total_item", Value: lt},
		})
	}
	add("itens", items)

	if o.LoadedAt != nil {
		add("data_carga", primitive.NewDateTimeFromTime(*o.LoadedAt))
	}
	return doc, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

// toOrder converts a decoded document.
func (d orderDoc) toOrder() (order.Order, error) {
	o := order.Order{ID: d.ID}
	var err error

	if o.OrderNumber, err = rawInt(d.OrderNumber); err != nil {
		return order.Order{}, fmt.Errorf("%s: numero_pv: %w", d.ID, err)
	}
	for _, f := range []struct {
		name string
		raw  bson.RawValue
		dst  **string
	}{
		{"filial_codigo", d.BranchCode, &o.BranchCode},
		{"filial_nome", d.BranchName, &o.BranchName},
		{"parceiro", d.Partner, &o.Partner},
		{"vendedor", d.Salesperson, &o.Salesperson},
		{"condicao_pagamento", d.PaymentTerms, &o.PaymentTerms},
	} {
		if *f.dst, err = rawString(f.raw); err != nil {
			return order.Order{}, fmt.Errorf("%s: %s: %w", d.ID, f.name, err)
		}
	}
	if o.IssuedAt, err = rawTime(d.IssuedAt); err != nil {
		return order.Order{}, fmt.Errorf("%s: emissao: %w", d.ID, err)
	}
	if o.LoadedAt, err = rawTime(d.LoadedAt); err != nil {
		return order.Order{}, fmt.Errorf("%s: data_carga: %w", d.ID, err)
	}
	total, err := rawDecimal(d.Total)
	if err != nil {
		return order.Order{}, fmt.Errorf("%s: valor_total_pedido: %w", d.ID, err)
	}
	if total != nil {
		o.Total = decimal.NewNullDecimal(*total)
	}

	for i, it := range d.Items {
		item, err := it.toItem()
		if err != nil {
			return order.Order{}, fmt.Errorf("%s: itens[%d]: %w", d.ID, i, err)
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func (d itemDoc) toItem() (order.Item, error) {
	var it order.Item
	code, err := rawString(d.ProductCode)
	if err != nil {
		// product codes are sometimes stored as numbers
		n, nerr := rawInt(d.ProductCode)
		if nerr != nil {
			return it, fmt.Errorf("cod_produto: %w", err)
		}
		s := strconv.FormatInt(*n, 10)
		code = &s
	}
	if code != nil {
		it.ProductCode = *code
	}
	desc, err := rawString(d.Description)
	if err != nil {
		return it, fmt.Errorf("descricao: %w", err)
	}
	if desc != nil {
		it.Description = *desc
	}
	for _, f := range []struct {
		name string
		raw  bson.RawValue
		dst  *decimal.Decimal
	}{
		{"quantidade", d.Quantity, &it.Quantity},
		{"unitario", d.UnitPrice, &it.UnitPrice},
		{"total_item", d.LineTotal, &it.LineTotal},
	} {
		v, err := rawDecimal(f.raw)
		if err != nil {
			return it, fmt.Errorf("%s: %w", f.name, err)
		}
		if v != nil {
			*f.dst = *v
		}
	}
	return it, nil
}

func isNull(v bson.RawValue) bool {
	return v.Type == 0 || v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

func rawString(v bson.RawValue) (*string, error) {
	if isNull(v) {
		return nil, nil
	}
	s, ok := v.StringValueOK()
	if !ok {
		return nil, fmt.Errorf("expected string, got %s", v.Type)
	}
	return &s, nil
}

func rawInt(v bson.RawValue) (*int64, error) {
	if isNull(v) {
		return nil, nil
	}
	switch v.Type {
	case bson.TypeInt32:
		n := int64(v.Int32())
		return &n, nil
	case bson.TypeInt64:
		n := v.Int64()
		return &n, nil
	case bson.TypeDouble:
		f := v.Double()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("non-integral number %v", f)
		}
		n := int64(f)
		return &n, nil
	case bson.TypeString:
		n, err := strconv.ParseInt(v.StringValue(), 10, 64)
		if err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("expected integer, got %s", v.Type)
	}
}

func rawDecimal(v bson.RawValue) (*decimal.Decimal, error) {
	if isNull(v) {
		return nil, nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch v.Type {
	case bson.TypeDecimal128:
		d, err = decimal.NewFromString(v.Decimal128().String())
	case bson.TypeDouble:
		d = decimal.NewFromFloat(v.Double())
	case bson.TypeInt32:
		d = decimal.NewFromInt(int64(v.Int32()))
	case bson.TypeInt64:
		d = decimal.NewFromInt(v.Int64())
	case bson.TypeString:
		d, err = decimal.NewFromString(v.StringValue())
	default:
		return nil, fmt.Errorf("expected number, got %s", v.Type)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func rawTime(v bson.RawValue) (*time.Time, error) {
	if isNull(v) {
		return nil, nil
	}
	switch v.Type {
	case bson.TypeDateTime:
		t := v.Time().UTC()
		return &t, nil
	case bson.TypeString:
		t, err := order.ParseTime(v.StringValue())
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("expected date, got %s", v.Type)
	}
}

// renderRaw renders a stored value the way pipeline.Field.Value renders the
// decoded record field.
func renderRaw(f pipeline.Field, v bson.RawValue) (*string, error) {
	switch f {
	case pipeline.FieldOrderNumber:
		n, err := rawInt(v)
		if err != nil || n == nil {
			return nil, err
		}
		s := strconv.FormatInt(*n, 10)
		return &s, nil
	case pipeline.FieldIssuedAt, pipeline.FieldLoadedAt:
		t, err := rawTime(v)
		if err != nil || t == nil {
			return nil, err
		}
		s := order.FormatTime(*t)
		return &s, nil
	case pipeline.FieldTotal:
		d, err := rawDecimal(v)
		if err != nil || d == nil {
			return nil, err
		}
		s := d.String()
		return &s, nil
	default:
		return rawString(v)
	}
}
