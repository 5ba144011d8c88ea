package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is a dictionary-of-keys assembly buffer. Entries are accumulated with
// Set/AddTo and the finished operator is handed out in CSR form.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims and At minimally satisfy the mat.Matrix interface together with T.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }
func (m DOK) NNZ() int            { return m.M.NNZ() }

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m DOK) AddTo(i, j int, val float64) DOK { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

// Triplet is one (row, column, value) contribution to a sparse operator
type Triplet struct {
	I, J int
	Val  float64
}

// Accumulate adds a batch of triplets, repeated coordinates are summed
func (m DOK) Accumulate(T []Triplet) (err error) {
	var (
		nr, nc = m.Dims()
	)
	m.checkWritable()
	for _, tr := range T {
		if tr.I < 0 || tr.I >= nr || tr.J < 0 || tr.J >= nc {
			err = fmt.Errorf("triplet out of bounds: (%d, %d) for %d x %d matrix named: \"%v\"",
				tr.I, tr.J, nr, nc, m.name)
			return
		}
	}
	for _, tr := range T {
		m.AddTo(tr.I, tr.J, tr.Val)
	}
	return
}

func (m DOK) ToCSR() *sparse.CSR {
	return m.M.ToCSR()
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
