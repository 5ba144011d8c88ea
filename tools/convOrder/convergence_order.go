package convOrder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// ConvergenceStudy holds one functional evaluated on a sequence of grids,
// ordered from coarse to fine
type ConvergenceStudy struct {
	Title      string
	NumCells   []int
	DX         []float64
	Functional []float64
}

func NewConvergenceStudy(title string) *ConvergenceStudy {
	return &ConvergenceStudy{
		Title: title,
	}
}

func (cs *ConvergenceStudy) Add(numCells int, dx, functional float64) {
	cs.NumCells = append(cs.NumCells, numCells)
	cs.DX = append(cs.DX, dx)
	cs.Functional = append(cs.Functional, functional)
}

func (cs *ConvergenceStudy) Len() int { return len(cs.NumCells) }

/*
Orders returns the observed order of accuracy from each run of three
consecutive grids i-1, i, i+1:

	p = log(|F[i-1] - F[i]| / |F[i] - F[i+1]|) / log(r),  r = dx[i] / dx[i+1]

The grid ratio must be the same between the three levels.
*/
func (cs *ConvergenceStudy) Orders() (p []float64, err error) {
	if cs.Len() < 3 {
		err = fmt.Errorf("%s: observed order needs three grids, have %d", cs.Title, cs.Len())
		return
	}
	p = make([]float64, cs.Len()-2)
	for i := 1; i < cs.Len()-1; i++ {
		var (
			r1    = cs.DX[i-1] / cs.DX[i]
			r2    = cs.DX[i] / cs.DX[i+1]
			dCoar = math.Abs(cs.Functional[i-1] - cs.Functional[i])
			dFine = math.Abs(cs.Functional[i] - cs.Functional[i+1])
		)
		if math.Abs(r1-r2) > 1.e-8*r1 || r2 <= 1 {
			err = fmt.Errorf("%s: grids %d to %d are not refined by a constant ratio", cs.Title, i-1, i+1)
			return
		}
		if dFine == 0 || dCoar == 0 {
			err = fmt.Errorf("%s: functional does not change between grids %d and %d", cs.Title, i-1, i+1)
			return
		}
		p[i-1] = math.Log(dCoar/dFine) / math.Log(r2)
	}
	return
}

// Extrapolate is the Richardson extrapolation of the functional from the
// three finest grids
func (cs *ConvergenceStudy) Extrapolate() (F, order float64, err error) {
	var p []float64
	if p, err = cs.Orders(); err != nil {
		return
	}
	var (
		n = cs.Len()
		r = cs.DX[n-2] / cs.DX[n-1]
	)
	order = p[len(p)-1]
	F = cs.Functional[n-1] + (cs.Functional[n-1]-cs.Functional[n-2])/(math.Pow(r, order)-1)
	return
}

func (cs *ConvergenceStudy) Print(w io.Writer) {
	fmt.Fprintf(w, "Title = %s\n", cs.Title)
	p, err := cs.Orders()
	for i := range cs.NumCells {
		fmt.Fprintf(w, "%8d, %12.6g, %20.14g", cs.NumCells[i], cs.DX[i], cs.Functional[i])
		if err == nil && i >= 2 {
			fmt.Fprintf(w, ", order = %6.3f", p[i-2])
		}
		fmt.Fprintln(w)
	}
	if F, order, err := cs.Extrapolate(); err == nil {
		fmt.Fprintf(w, "Extrapolated functional = %20.14g, observed order = %6.3f\n", F, order)
	}
}

var csvHeader = []string{"Title", "NumCells", "DX", "Functional"}

func WriteCSV(w io.Writer, studies ...*ConvergenceStudy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, cs := range studies {
		for i := range cs.NumCells {
			rec := []string{
				cs.Title,
				strconv.Itoa(cs.NumCells[i]),
				strconv.FormatFloat(cs.DX[i], 'g', -1, 64),
				strconv.FormatFloat(cs.Functional[i], 'g', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV groups the records by title, each study is sorted from coarse to fine
func ReadCSV(r io.Reader) (studies map[string]*ConvergenceStudy, err error) {
	var (
		records [][]string
		ok      bool
		cs      *ConvergenceStudy
	)
	studies = make(map[string]*ConvergenceStudy)
	if records, err = csv.NewReader(bufio.NewReader(r)).ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != len(csvHeader) {
			err = fmt.Errorf("line %d: have %d fields, need %d", i+1, len(rec), len(csvHeader))
			return
		}
		var (
			npts   int
			dx, fv float64
		)
		if npts, err = strconv.Atoi(rec[1]); err != nil {
			return
		}
		if dx, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return
		}
		if fv, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return
		}
		if cs, ok = studies[rec[0]]; !ok {
			cs = NewConvergenceStudy(rec[0])
			studies[rec[0]] = cs
		}
		cs.Add(npts, dx, fv)
	}
	for _, cs := range studies {
		sort.Sort(byCells{cs})
	}
	return
}

type byCells struct{ *ConvergenceStudy }

func (b byCells) Less(i, j int) bool { return b.NumCells[i] < b.NumCells[j] }
func (b byCells) Swap(i, j int) {
	b.NumCells[i], b.NumCells[j] = b.NumCells[j], b.NumCells[i]
	b.DX[i], b.DX[j] = b.DX[j], b.DX[i]
	b.Functional[i], b.Functional[j] = b.Functional[j], b.Functional[i]
}
