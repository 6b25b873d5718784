// seehuhn.de/go/psvm - a PostScript execution engine
// Copyright (C) 2023  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package psvm

// Stack is a bounded stack of objects.
//
// The operand, dictionary and execution stacks of an interpreter are all
// Stacks, differing in their limits and in the error kinds used for
// overflow and underflow.
//
// Popping an element does not clear its slot.  The run loop relies on
// this to restore the operand stack after a failed operator.
type Stack struct {
	data   []Object
	bottom int
	limit  int

	overflow, underflow ErrorKind
}

func newStack(initial, limit int, overflow, underflow ErrorKind) *Stack {
	if initial > limit {
		initial = limit
	}
	return &Stack{
		data:      make([]Object, 0, initial),
		limit:     limit,
		overflow:  overflow,
		underflow: underflow,
	}
}

// Len returns the number of objects above the bottom marker.
func (s *Stack) Len() int {
	return len(s.data) - s.bottom
}

// depth returns the total number of objects, including those below the
// bottom marker.
func (s *Stack) depth() int {
	return len(s.data)
}

// setDepth truncates the stack to n elements.  If n is larger than the
// current depth but within the capacity, previously popped elements
// reappear.
func (s *Stack) setDepth(n int) {
	if n > cap(s.data) {
		n = cap(s.data)
	}
	s.data = s.data[:n]
}

// Bottom returns the position of the bottom marker.
func (s *Stack) Bottom() int {
	return s.bottom
}

// SetBottom moves the bottom marker.  Elements below the marker are
// invisible to Pop, Index and the counting methods.
func (s *Stack) SetBottom(n int) {
	if n < 0 {
		n = 0
	} else if n > len(s.data) {
		n = len(s.data)
	}
	s.bottom = n
}

// Clear removes all objects above the bottom marker.
func (s *Stack) Clear() {
	s.data = s.data[:s.bottom]
}

func (s *Stack) grow() bool {
	c := cap(s.data)
	if c >= s.limit {
		return false
	}
	newCap := 2 * c
	if newCap < 8 {
		newCap = 8
	}
	if newCap > s.limit {
		newCap = s.limit
	}
	data := make([]Object, newCap)
	copy(data, s.data[:c])
	s.data = data[:len(s.data)]
	return true
}

// Push adds o to the top of the stack.
func (s *Stack) Push(o Object) error {
	if len(s.data) == cap(s.data) && !s.grow() {
		return &Error{Kind: s.overflow}
	}
	s.data = append(s.data, o)
	return nil
}

// Pop removes and returns the top object.
func (s *Stack) Pop() (Object, error) {
	if len(s.data) <= s.bottom {
		return Object{}, &Error{Kind: s.underflow}
	}
	o := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return o, nil
}

// PopType removes and returns the top object, if its type is in mask.
// Otherwise the stack is left unchanged and a typecheck error is returned.
func (s *Stack) PopType(mask TypeMask) (Object, error) {
	o, err := s.TopType(mask)
	if err != nil {
		return o, err
	}
	s.data = s.data[:len(s.data)-1]
	return o, nil
}

// Top returns the top object without removing it.
func (s *Stack) Top() (Object, error) {
	if len(s.data) <= s.bottom {
		return Object{}, &Error{Kind: s.underflow}
	}
	return s.data[len(s.data)-1], nil
}

// TopType returns the top object, if its type is in mask.
func (s *Stack) TopType(mask TypeMask) (Object, error) {
	o, err := s.Top()
	if err != nil {
		return o, err
	}
	if !o.Is(mask) {
		return o, &Error{Kind: Typecheck, Msg: "unexpected " + o.typ.String()}
	}
	return o, nil
}

// Index returns the object n positions below the top.  Index(0) is the
// top object.
func (s *Stack) Index(n int) (Object, error) {
	if n < 0 {
		return Object{}, &Error{Kind: Rangecheck}
	}
	if n >= s.Len() {
		return Object{}, &Error{Kind: s.underflow}
	}
	return s.data[len(s.data)-1-n], nil
}

// Dup duplicates the top object.
func (s *Stack) Dup() error {
	o, err := s.Top()
	if err != nil {
		return err
	}
	return s.Push(o)
}

// Exch exchanges the two top objects.
func (s *Stack) Exch() error {
	if s.Len() < 2 {
		return &Error{Kind: s.underflow}
	}
	k := len(s.data)
	s.data[k-1], s.data[k-2] = s.data[k-2], s.data[k-1]
	return nil
}

// Copy duplicates the top n objects.
func (s *Stack) Copy(n int) error {
	if n < 0 {
		return &Error{Kind: Rangecheck}
	}
	if n > s.Len() {
		return &Error{Kind: s.underflow}
	}
	k := len(s.data)
	for i := k - n; i < k; i++ {
		if err := s.Push(s.data[i]); err != nil {
			s.data = s.data[:k]
			return err
		}
	}
	return nil
}

// Roll performs a circular shift of the top n objects by j positions.
// Positive j moves objects towards the top of the stack.
func (s *Stack) Roll(n, j int) error {
	if n < 0 {
		return &Error{Kind: Rangecheck}
	}
	if n > s.Len() {
		return &Error{Kind: s.underflow}
	}
	if n < 2 {
		return nil
	}
	j %= n
	if j < 0 {
		j += n
	}
	if j == 0 {
		return nil
	}

	seg := s.data[len(s.data)-n:]
	tmp := make([]Object, n)
	copy(tmp[j:], seg[:n-j])
	copy(tmp[:j], seg[n-j:])
	copy(seg, tmp)
	return nil
}

// CountTo returns the distance from the top to the nearest object whose
// type is in mask.  CountTo returns 0 if the top object matches.  The
// second return value is false if there is no such object.
func (s *Stack) CountTo(mask TypeMask) (int, bool) {
	for i := len(s.data) - 1; i >= s.bottom; i-- {
		if s.data[i].Is(mask) {
			return len(s.data) - 1 - i, true
		}
	}
	return 0, false
}

// CountToMark returns the number of objects above the topmost mark.
func (s *Stack) CountToMark() (int, error) {
	n, ok := s.CountTo(TypeMark.Mask())
	if !ok {
		return 0, &Error{Kind: Unmatchedmark}
	}
	return n, nil
}

// ClearToMark removes all objects down to and including the topmost mark.
func (s *Stack) ClearToMark() error {
	n, err := s.CountToMark()
	if err != nil {
		return err
	}
	s.data = s.data[:len(s.data)-n-1]
	return nil
}

// Values returns a copy of the objects above the bottom marker, with the
// bottom-most object first.
func (s *Stack) Values() []Object {
	res := make([]Object, s.Len())
	copy(res, s.data[s.bottom:])
	return res
}

// top returns the topmost n objects, bottom-most first, without copying.
// The caller must have checked that enough objects are present.
func (s *Stack) top(n int) []Object {
	return s.data[len(s.data)-n:]
}

// need checks that at least n objects are present.
func (s *Stack) need(n int) error {
	if s.Len() < n {
		return &Error{Kind: s.underflow}
	}
	return nil
}

// drop removes the top n objects.
func (s *Stack) drop(n int) {
	s.data = s.data[:len(s.data)-n]
}

// room checks that n more objects can be pushed.
func (s *Stack) room(n int) error {
	if len(s.data)+n > s.limit {
		return &Error{Kind: s.overflow}
	}
	return nil
}
