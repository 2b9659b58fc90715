package core

// Group is the line items of one owner (debts) or payer (incomes) in a cycle.
type Group struct {
	Kind       Kind
	GroupID    string
	Items      []LineItem
	TotalCents int64
	Status     Status
}

// AggregateStatus is PAID iff every status is PAID. An empty set is PENDING.
func AggregateStatus(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusPending
	}
	for _, s := range statuses {
		if s != StatusPaid {
			return StatusPending
		}
	}
	return StatusPaid
}

// GroupLineItems groups items by (Kind, GroupID), keeping first-seen order.
func GroupLineItems(items []LineItem) []Group {
	type key struct {
		kind Kind
		id   string
	}
	index := make(map[key]int)
	var groups []Group
	for _, it := range items {
		k := key{it.Kind, it.GroupID}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Kind: it.Kind, GroupID: it.GroupID})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].TotalCents += it.AmountCents
	}
	for i := range groups {
		statuses := make([]Status, len(groups[i].Items))
		for j, it := range groups[i].Items {
			statuses[j] = it.Status
		}
		groups[i].Status = AggregateStatus(statuses)
	}
	return groups
}
