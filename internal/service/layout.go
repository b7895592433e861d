package service

// Layout arranges buttons into rows. An even count gets a single button on
// the first and last rows with pairs in between. An odd count is laid out as
// bricks: positions where i%5 is 0 or 3 start a two-button row, every other
// position starts a three-button row, and a trailing button that cannot fill
// its row is placed alone.
func Layout[T any](items []T) [][]T {
	n := len(items)
	rows := make([][]T, 0, n/2+1)

	if n%2 == 0 {
		if n > 0 {
			rows = append(rows, []T{items[0]})
		}
		for i := 1; i < n-1; i += 2 {
			rows = append(rows, []T{items[i], items[i+1]})
		}
		if n > 1 {
			rows = append(rows, []T{items[n-1]})
		}
		return rows
	}

	i := 0
	for i < n {
		if i%5 == 0 || i%5 == 3 {
			if i+1 < n {
				rows = append(rows, []T{items[i], items[i+1]})
				i += 2
			} else {
				rows = append(rows, []T{items[i]})
				i++
			}
			continue
		}

		if i+2 < n {
			rows = append(rows, []T{items[i], items[i+1], items[i+2]})
			i += 3
		} else {
			rows = append(rows, []T{items[i]})
			i++
		}
	}

	return rows
}
