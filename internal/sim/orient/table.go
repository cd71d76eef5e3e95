package orient

import "fmt"

// Table maps (relative, reference) to an absolute facing. Every one of the 36
// entries is defined.
type Table struct {
	name string
	rows [NumDirections][NumDirections]Absolute // [reference][relative]
}

// Reference is the table the simulation has always used. In the East row,
// left and right land on the same directions as front and back.
var Reference = Table{
	name: "reference",
	rows: [NumDirections][NumDirections]Absolute{
		//        up    down  front  left   back   right
		Up:    {West, East, Up, North, Down, South},
		Down:  {West, East, Down, South, Up, North},
		North: {Up, Down, North, West, South, East},
		South: {Up, Down, South, East, North, West},
		East:  {Up, Down, East, East, West, West},
		West:  {Up, Down, West, North, East, South},
	},
}

// Corrected gives East and West references distinct left/right directions.
var Corrected = Table{
	name: "corrected",
	rows: [NumDirections][NumDirections]Absolute{
		Up:    {West, East, Up, North, Down, South},
		Down:  {West, East, Down, South, Up, North},
		North: {Up, Down, North, West, South, East},
		South: {Up, Down, South, East, North, West},
		East:  {Up, Down, East, North, West, South},
		West:  {Up, Down, West, South, East, North},
	},
}

func (t Table) Name() string { return t.name }

// Compose returns the absolute direction of rel for something facing ref.
// Out-of-range inputs panic.
func (t Table) Compose(rel Relative, ref Absolute) Absolute {
	if !rel.Valid() || !ref.Valid() {
		panic(fmt.Sprintf("orient: compose(%d, %d) outside the direction enums", uint8(rel), uint8(ref)))
	}
	return t.rows[ref][rel]
}

// Compose uses the Reference table.
func Compose(rel Relative, ref Absolute) Absolute {
	return Reference.Compose(rel, ref)
}

// TableFor picks Corrected when corrected is set.
func TableFor(corrected bool) Table {
	if corrected {
		return Corrected
	}
	return Reference
}
