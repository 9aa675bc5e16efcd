// Package artifacts loads the fitted scaler and regression model produced by
// the offline training job.
//
// Models are read from PMML documents. Supported model elements are
// RegressionModel, TreeModel and MiningModel with an averaging or summing
// Segmentation, which covers linear regressions and random forests.
package artifacts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Dan9191/repayment-predictor/internal/models"
	"github.com/beevik/etree"
)

// PMMLModel evaluates a regression model read from a PMML document
type PMMLModel struct {
	root   evaluator
	fields int
}

type evaluator interface {
	eval(x []float64) (float64, error)
}

// LoadModel reads a PMML model from path and binds its fields to schema
func LoadModel(path string, schema []string) (*PMMLModel, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	return newPMMLModel(doc, schema)
}

// ParseModel reads a PMML model from raw bytes and binds its fields to schema
func ParseModel(data []byte, schema []string) (*PMMLModel, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return newPMMLModel(doc, schema)
}

func newPMMLModel(doc *etree.Document, schema []string) (*PMMLModel, error) {
	root := doc.Root()
	if root == nil || root.Tag != "PMML" {
		return nil, fmt.Errorf("document is not PMML")
	}

	b := &builder{fields: make(map[string]int, len(schema))}
	for i, name := range schema {
		b.fields[name] = i
	}

	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "RegressionModel", "TreeModel", "MiningModel":
			ev, err := b.model(el)
			if err != nil {
				return nil, err
			}
			return &PMMLModel{root: ev, fields: len(schema)}, nil
		}
	}
	return nil, fmt.Errorf("no supported model element in PMML")
}

// Predict evaluates the model on values laid out in schema order
func (m *PMMLModel) Predict(values []float64) (float64, error) {
	if len(values) != m.fields {
		return 0, fmt.Errorf("%w: model expects %d values, got %d", models.ErrSchemaMismatch, m.fields, len(values))
	}
	return m.root.eval(values)
}

type builder struct {
	fields map[string]int
}

func (b *builder) model(el *etree.Element) (evaluator, error) {
	if fn := el.SelectAttrValue("functionName", "regression"); fn != "regression" {
		return nil, fmt.Errorf("%s: unsupported function %q", el.Tag, fn)
	}
	if err := b.checkMiningSchema(el); err != nil {
		return nil, err
	}
	switch el.Tag {
	case "RegressionModel":
		return b.regression(el)
	case "TreeModel":
		return b.tree(el)
	case "MiningModel":
		return b.ensemble(el)
	}
	return nil, fmt.Errorf("unsupported model element %s", el.Tag)
}

// checkMiningSchema fails when the model consumes a field that is not part
// of the serving schema.
func (b *builder) checkMiningSchema(el *etree.Element) error {
	ms := el.SelectElement("MiningSchema")
	if ms == nil {
		return nil
	}
	for _, f := range ms.SelectElements("MiningField") {
		usage := f.SelectAttrValue("usageType", "active")
		if usage != "active" {
			continue
		}
		if _, err := b.field(f.SelectAttrValue("name", "")); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) field(name string) (int, error) {
	idx, ok := b.fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: model field %q is not a known feature", models.ErrSchemaMismatch, name)
	}
	return idx, nil
}

type term struct {
	idx      int
	coef     float64
	exponent float64
}

type regression struct {
	intercept float64
	terms     []term
}

func (b *builder) regression(el *etree.Element) (evaluator, error) {
	table := el.SelectElement("RegressionTable")
	if table == nil {
		return nil, fmt.Errorf("RegressionModel has no RegressionTable")
	}
	intercept, err := floatAttr(table, "intercept", 0)
	if err != nil {
		return nil, err
	}
	r := &regression{intercept: intercept}
	for _, np := range table.SelectElements("NumericPredictor") {
		idx, err := b.field(np.SelectAttrValue("name", ""))
		if err != nil {
			return nil, err
		}
		coef, err := floatAttr(np, "coefficient", math.NaN())
		if err != nil {
			return nil, err
		}
		if math.IsNaN(coef) {
			return nil, fmt.Errorf("NumericPredictor %q has no coefficient", np.SelectAttrValue("name", ""))
		}
		exp, err := floatAttr(np, "exponent", 1)
		if err != nil {
			return nil, err
		}
		r.terms = append(r.terms, term{idx: idx, coef: coef, exponent: exp})
	}
	return r, nil
}

func (r *regression) eval(x []float64) (float64, error) {
	y := r.intercept
	for _, t := range r.terms {
		v := x[t.idx]
		if t.exponent != 1 {
			v = math.Pow(v, t.exponent)
		}
		y += t.coef * v
	}
	return y, nil
}

type ensemble struct {
	method   string
	segments []segment
}

type segment struct {
	when   predicate
	weight float64
	model  evaluator
}

func (b *builder) ensemble(el *etree.Element) (evaluator, error) {
	seg := el.SelectElement("Segmentation")
	if seg == nil {
		return nil, fmt.Errorf("MiningModel has no Segmentation")
	}
	e := &ensemble{method: seg.SelectAttrValue("multipleModelMethod", "")}
	switch e.method {
	case "average", "weightedAverage", "sum":
	default:
		return nil, fmt.Errorf("unsupported multipleModelMethod %q", e.method)
	}

	for _, s := range seg.SelectElements("Segment") {
		weight, err := floatAttr(s, "weight", 1)
		if err != nil {
			return nil, err
		}
		var when predicate = constPredicate(true)
		var model evaluator
		for _, child := range s.ChildElements() {
			switch child.Tag {
			case "RegressionModel", "TreeModel", "MiningModel":
				if model, err = b.model(child); err != nil {
					return nil, err
				}
			default:
				if !isPredicate(child.Tag) {
					continue
				}
				if when, err = b.predicate(child); err != nil {
					return nil, err
				}
			}
		}
		if model == nil {
			return nil, fmt.Errorf("segment %q has no model", s.SelectAttrValue("id", ""))
		}
		e.segments = append(e.segments, segment{when: when, weight: weight, model: model})
	}
	if len(e.segments) == 0 {
		return nil, fmt.Errorf("Segmentation has no segments")
	}
	return e, nil
}

// eval combines the matching segments. Only weightedAverage uses the
// segment weights.
func (e *ensemble) eval(x []float64) (float64, error) {
	var sum, weighted, weights float64
	var matched int
	for _, s := range e.segments {
		if !s.when.eval(x) {
			continue
		}
		y, err := s.model.eval(x)
		if err != nil {
			return 0, err
		}
		matched++
		sum += y
		weighted += s.weight * y
		weights += s.weight
	}
	if matched == 0 {
		return 0, fmt.Errorf("no segment matched")
	}
	switch e.method {
	case "sum":
		return sum, nil
	case "weightedAverage":
		if weights == 0 {
			return 0, fmt.Errorf("matching segments have zero total weight")
		}
		return weighted / weights, nil
	default:
		return sum / float64(matched), nil
	}
}

type tree struct {
	root *node
	// lastPrediction is set for noTrueChildStrategy="returnLastPrediction".
	lastPrediction bool
}

type node struct {
	when     predicate
	score    float64
	hasScore bool
	children []*node
}

func (b *builder) tree(el *etree.Element) (evaluator, error) {
	rootEl := el.SelectElement("Node")
	if rootEl == nil {
		return nil, fmt.Errorf("TreeModel has no root Node")
	}
	strategy := el.SelectAttrValue("noTrueChildStrategy", "returnNullPrediction")
	switch strategy {
	case "returnNullPrediction", "returnLastPrediction":
	default:
		return nil, fmt.Errorf("unsupported noTrueChildStrategy %q", strategy)
	}
	root, err := b.node(rootEl)
	if err != nil {
		return nil, err
	}
	return &tree{root: root, lastPrediction: strategy == "returnLastPrediction"}, nil
}

func (b *builder) node(el *etree.Element) (*node, error) {
	n := &node{when: constPredicate(true)}
	if raw := el.SelectAttr("score"); raw != nil {
		score, err := strconv.ParseFloat(raw.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid node score %q: %w", raw.Value, err)
		}
		n.score, n.hasScore = score, true
	}
	for _, child := range el.ChildElements() {
		if child.Tag == "Node" {
			c, err := b.node(child)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
			continue
		}
		if isPredicate(child.Tag) {
			p, err := b.predicate(child)
			if err != nil {
				return nil, err
			}
			n.when = p
		}
	}
	if len(n.children) == 0 && !n.hasScore {
		return nil, fmt.Errorf("leaf node %q has no score", el.SelectAttrValue("id", ""))
	}
	return n, nil
}

// eval descends through the first matching child at each level. When no
// child of an inner node matches, the last node with a score wins under
// returnLastPrediction and the tree has no prediction otherwise.
func (t *tree) eval(x []float64) (float64, error) {
	if !t.root.when.eval(x) {
		return 0, fmt.Errorf("tree root predicate did not match")
	}
	n := t.root
	score, ok := n.score, n.hasScore
	for len(n.children) > 0 {
		var next *node
		for _, c := range n.children {
			if c.when.eval(x) {
				next = c
				break
			}
		}
		if next == nil {
			if !t.lastPrediction {
				return 0, fmt.Errorf("no child of node matched and noTrueChildStrategy is returnNullPrediction")
			}
			break
		}
		n = next
		if n.hasScore {
			score, ok = n.score, true
		}
	}
	if !ok {
		return 0, fmt.Errorf("tree produced no score")
	}
	return score, nil
}

type predicate interface {
	eval(x []float64) bool
}

type constPredicate bool

func (p constPredicate) eval([]float64) bool { return bool(p) }

type simplePredicate struct {
	idx   int
	op    string
	value float64
}

func (p simplePredicate) eval(x []float64) bool {
	v := x[p.idx]
	switch p.op {
	case "equal":
		return v == p.value
	case "notEqual":
		return v != p.value
	case "lessThan":
		return v < p.value
	case "lessOrEqual":
		return v <= p.value
	case "greaterThan":
		return v > p.value
	case "greaterOrEqual":
		return v >= p.value
	}
	return false
}

type compoundPredicate struct {
	op    string
	parts []predicate
}

func (p compoundPredicate) eval(x []float64) bool {
	switch p.op {
	case "and":
		for _, q := range p.parts {
			if !q.eval(x) {
				return false
			}
		}
		return true
	case "or":
		for _, q := range p.parts {
			if q.eval(x) {
				return true
			}
		}
		return false
	case "xor":
		n := 0
		for _, q := range p.parts {
			if q.eval(x) {
				n++
			}
		}
		return n%2 == 1
	}
	return false
}

func isPredicate(tag string) bool {
	switch tag {
	case "True", "False", "SimplePredicate", "CompoundPredicate":
		return true
	}
	return false
}

func (b *builder) predicate(el *etree.Element) (predicate, error) {
	switch el.Tag {
	case "True":
		return constPredicate(true), nil
	case "False":
		return constPredicate(false), nil
	case "SimplePredicate":
		idx, err := b.field(el.SelectAttrValue("field", ""))
		if err != nil {
			return nil, err
		}
		op := el.SelectAttrValue("operator", "")
		switch op {
		case "equal", "notEqual", "lessThan", "lessOrEqual", "greaterThan", "greaterOrEqual":
		default:
			return nil, fmt.Errorf("unsupported predicate operator %q", op)
		}
		value, err := floatAttr(el, "value", math.NaN())
		if err != nil {
			return nil, err
		}
		if math.IsNaN(value) {
			return nil, fmt.Errorf("SimplePredicate on %q has no value", el.SelectAttrValue("field", ""))
		}
		return simplePredicate{idx: idx, op: op, value: value}, nil
	case "CompoundPredicate":
		op := el.SelectAttrValue("booleanOperator", "")
		if op != "and" && op != "or" && op != "xor" {
			return nil, fmt.Errorf("unsupported boolean operator %q", op)
		}
		cp := compoundPredicate{op: op}
		for _, child := range el.ChildElements() {
			p, err := b.predicate(child)
			if err != nil {
				return nil, err
			}
			cp.parts = append(cp.parts, p)
		}
		return cp, nil
	}
	return nil, fmt.Errorf("unsupported predicate %s", el.Tag)
}

func floatAttr(el *etree.Element, name string, def float64) (float64, error) {
	attr := el.SelectAttr(name)
	if attr == nil {
		return def, nil
	}
	v, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s %q: %w", el.Tag, name, attr.Value, err)
	}
	return v, nil
}
