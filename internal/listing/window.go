package listing

// PageRef is one entry in a pagination control: either a page number or an
// ellipsis gap between page numbers.
type PageRef struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func pageRef(n int) PageRef { return PageRef{Page: n} }

var ellipsis = PageRef{Ellipsis: true}

// PageNumbers computes the page-number window shown for the given current
// page and page count. The result is a strictly ascending run of page numbers
// with at most two ellipsis gaps, always starting at 1 and ending at total.
//
//	total ≤ 5:         1 2 3 4 5
//	current ≤ 3:       1 2 3 4 … total
//	current ≥ total-2: 1 … total-3 total-2 total-1 total
//	otherwise:         1 … current-1 current current+1 … total
func PageNumbers(current, total int) []PageRef {
	if total <= 0 {
		return nil
	}

	if total <= 5 {
		refs := make([]PageRef, 0, total)
		for n := 1; n <= total; n++ {
			refs = append(refs, pageRef(n))
		}
		return refs
	}

	if current <= 3 {
		return []PageRef{pageRef(1), pageRef(2), pageRef(3), pageRef(4), ellipsis, pageRef(total)}
	}

	if current >= total-2 {
		return []PageRef{pageRef(1), ellipsis, pageRef(total - 3), pageRef(total - 2), pageRef(total - 1), pageRef(total)}
	}

	return []PageRef{pageRef(1), ellipsis, pageRef(current - 1), pageRef(current), pageRef(current + 1), ellipsis, pageRef(total)}
}
