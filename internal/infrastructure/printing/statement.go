package printing

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	appbill "github.com/erp/billhub/internal/application/bill"
)

const statementTimeLayout = "2006-01-02 15:04"

// statementLabels holds the fixed text of a statement in one language
type statementLabels struct {
	Title         string
	OwnerSection  string
	BillSection   string
	ItemsSection  string
	Name          string
	Phone         string
	Email         string
	Alias         string
	Department    string
	Status        string
	TotalAmount   string
	PaidAmount    string
	CreatedAt     string
	ExportedAt    string
	Remark        string
	Columns       []string
	Statuses      map[string]string
	Methods       map[string]string
	NoItemsNotice string
}

var labelSets = map[language.Tag]statementLabels{
	language.English: {
		Title:        "Bill Statement",
		OwnerSection: "Customer",
		BillSection:  "Bill",
		ItemsSection: "Items",
		Name:         "Name",
		Phone:        "Phone",
		Email:        "Email",
		Alias:        "Alias",
		Department:   "Department",
		Status:       "Status",
		TotalAmount:  "Total amount",
		PaidAmount:   "Paid amount",
		CreatedAt:    "Created",
		ExportedAt:   "Exported",
		Remark:       "Remark",
		Columns: []string{
			"Product", "Price", "Quantity", "Unit", "Purchased", "Settled", "Buyer",
			"Status", "Payment", "Settler", "Amount", "Paid", "Remark",
		},
		NoItemsNotice: "No items",
	},
	language.SimplifiedChinese: {
		Title:        "账单",
		OwnerSection: "客户信息",
		BillSection:  "账单信息",
		ItemsSection: "商品信息",
		Name:         "姓名",
		Phone:        "电话",
		Email:        "邮箱",
		Alias:        "别名",
		Department:   "地址",
		Status:       "状态",
		TotalAmount:  "总金额",
		PaidAmount:   "已付金额",
		CreatedAt:    "创建时间",
		ExportedAt:   "导出时间",
		Remark:       "备注",
		Columns: []string{
			"名称", "单价", "数量", "单位", "购买时间", "结算时间", "购买人",
			"状态", "支付方式", "结算人", "金额", "已付金额", "备注",
		},
		Statuses: map[string]string{"unpaid": "未支付", "paid": "已支付", "refunded": "已退款"},
		Methods:  map[string]string{"cash": "现金", "alipay": "支付宝", "wechat": "微信", "credit": "赊账"},
		NoItemsNotice: "无商品",
	},
}

var supportedLocales = language.NewMatcher([]language.Tag{language.English, language.SimplifiedChinese})

// StatementTemplate renders bill snapshots as landscape A4 HTML
type StatementTemplate struct {
	tmpl    *template.Template
	tag     language.Tag
	labels  statementLabels
	printer *message.Printer
	title   cases.Caser
	loc     *time.Location
}

// NewStatementTemplate builds a template for the best supported match of
// locale (e.g. "en", "zh-CN"). Times are printed in loc; nil means UTC.
func NewStatementTemplate(locale string, loc *time.Location) (*StatementTemplate, error) {
	requested, _ := language.Parse(locale)
	_, idx, _ := supportedLocales.Match(requested)
	tag := []language.Tag{language.English, language.SimplifiedChinese}[idx]
	if loc == nil {
		loc = time.UTC
	}

	st := &StatementTemplate{
		tag:     tag,
		labels:  labelSets[tag],
		printer: message.NewPrinter(tag),
		title:   cases.Title(tag),
		loc:     loc,
	}
	tmpl, err := template.New("statement").Funcs(template.FuncMap{
		"money":  st.money,
		"qty":    st.quantity,
		"when":   st.when,
		"whenp":  st.whenPtr,
		"status": st.statusLabel,
		"method": st.methodLabel,
	}).Parse(statementHTML)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse statement template", err)
	}
	st.tmpl = tmpl
	return st, nil
}

// Locale returns the language the statement is printed in
func (st *StatementTemplate) Locale() language.Tag {
	return st.tag
}

// Title returns the document title for a snapshot
func (st *StatementTemplate) Title(snap appbill.BillSnapshot) string {
	return st.labels.Title + " " + snap.BillID.String()
}

// Render executes the template for snap
func (st *StatementTemplate) Render(snap appbill.BillSnapshot) (string, error) {
	var buf bytes.Buffer
	err := st.tmpl.Execute(&buf, struct {
		L    statementLabels
		Bill appbill.BillSnapshot
	}{L: st.labels, Bill: snap})
	if err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to render statement", err)
	}
	return buf.String(), nil
}

// money prints a 2-place amount with locale digit grouping
func (st *StatementTemplate) money(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	whole := decimal.RequireFromString(intPart).IntPart()
	out := st.printer.Sprintf("%d", whole) + "." + frac
	if d.IsNegative() && !d.Round(2).IsZero() {
		out = "-" + out
	}
	return out
}

func (st *StatementTemplate) quantity(d decimal.Decimal) string {
	return d.String()
}

func (st *StatementTemplate) when(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(st.loc).Format(statementTimeLayout)
}

func (st *StatementTemplate) whenPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return st.when(*t)
}

func (st *StatementTemplate) statusLabel(code string) string {
	if label, ok := st.labels.Statuses[code]; ok {
		return label
	}
	return st.title.String(code)
}

func (st *StatementTemplate) methodLabel(code string) string {
	if label, ok := st.labels.Methods[code]; ok {
		return label
	}
	return st.title.String(code)
}

const statementHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  @page { size: A4 landscape; }
  body { font-family: "Noto Sans", "Noto Sans CJK SC", Arial, sans-serif; font-size: 10px; color: #000; }
  h2 { font-size: 16px; margin: 12px 0 6px; }
  p { margin: 2px 0; }
  table { width: 100%; border-collapse: collapse; font-size: 8px; }
  th { background: #d3d3d3; font-size: 9px; border-top: 1px solid #000; border-bottom: 1px solid #000; }
  th, td { text-align: center; vertical-align: middle; padding: 4px 2px; }
  tbody tr:last-child td { border-bottom: 1px solid #000; }
</style>
</head>
<body>
<h2>{{.L.OwnerSection}}</h2>
<p>{{.L.Name}}: {{.Bill.Owner.Username}}</p>
<p>{{.L.Phone}}: {{.Bill.Owner.Phone}}</p>
<p>{{.L.Email}}: {{.Bill.Owner.Email}}</p>
<p>{{.L.Alias}}: {{.Bill.Owner.Alias}}</p>
<p>{{.L.Department}}: {{.Bill.Owner.DepartmentName}}</p>

<h2>{{.L.BillSection}}</h2>
<p>{{.L.Status}}: {{status .Bill.Status}}</p>
<p>{{.L.TotalAmount}}: {{money .Bill.TotalAmount}}</p>
<p>{{.L.PaidAmount}}: {{money .Bill.PaidAmount}}</p>
<p>{{.L.CreatedAt}}: {{when .Bill.CreatedAt}}</p>
<p>{{.L.ExportedAt}}: {{when .Bill.ExportTime}}</p>
{{- if .Bill.Remark}}
<p>{{.L.Remark}}: {{.Bill.Remark}}</p>
{{- end}}

<h2>{{.L.ItemsSection}}</h2>
<table>
<thead><tr>{{range .L.Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Bill.Items}}
<tr>
<td>{{.ProductName}}</td>
<td>{{money .Price}}</td>
<td>{{qty .Quantity}}</td>
<td>{{.Unit}}</td>
<td>{{when .PurchaseTime}}</td>
<td>{{whenp .SettleTime}}</td>
<td>{{.BuyerName}}</td>
<td>{{status .Status}}</td>
<td>{{method .PaymentMethod}}</td>
<td>{{.SettlerName}}</td>
<td>{{money .Amount}}</td>
<td>{{money .PaidAmount}}</td>
<td>{{.Remark}}</td>
</tr>
{{- else}}
<tr><td colspan="13">{{$.L.NoItemsNotice}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>`
