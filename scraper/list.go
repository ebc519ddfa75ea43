package scraper

import "apt_crawler/models"

const (
	resultRowSelector   = "li.result-row"
	resultTitleSelector = "a.result-title"
	resultPriceSelector = ".result-price"
	housingSelector     = ".housing"
	hoodSelector        = ".result-hood"
	nextPageSelector    = "a.button.next"
)

// ParseList handles a search results page. For each result row it yields a
// request for the listing page followed by the row's ListRecord, then a
// request for the next results page when one is linked.
func ParseList(page Node) ([]Item, error) {
	rows := page.Find(resultRowSelector)
	items := make([]Item, 0, 2*len(rows)+1)

	for _, row := range rows {
		rec := models.NewListRecord()
		rec.PID = ownAttr(row, "data-pid")
		rec.Title = FirstText(row, resultTitleSelector)

		if link := FirstAttr(row, resultTitleSelector, "href"); link != nil && *link != "" {
			items = append(items, requestItem(*link, CallbackPost))
		}

		rec.HousingType = SplitHousing(FirstText(row, housingSelector))
		rec.Price = CleanPrice(FirstText(row, resultPriceSelector))
		rec.Neighborhood = FirstText(row, hoodSelector)

		items = append(items, recordItem(rec))
	}

	if next := FirstAttr(page, nextPageSelector, "href"); next != nil && *next != "" {
		items = append(items, requestItem(*next, CallbackList))
	}

	return items, nil
}
