package batch

// Pairing is one input together with the output argument it was matched to.
type Pairing struct {
	Input     string
	Output    string
	HasOutput bool
}

// Pair matches inputs to outputs by position. Once outputs run out the last
// one is reused, so a single output can serve as a shared directory or
// destination for any number of inputs. With no outputs at all every input
// is left unpaired.
func Pair(inputs, outputs []string) []Pairing {
	pairs := make([]Pairing, len(inputs))
	for i, in := range inputs {
		pairs[i].Input = in
		switch {
		case len(outputs) == 0:
		case i < len(outputs):
			pairs[i].Output, pairs[i].HasOutput = outputs[i], true
		default:
			pairs[i].Output, pairs[i].HasOutput = outputs[len(outputs)-1], true
		}
	}
	return pairs
}
