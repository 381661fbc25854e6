package domain

type ListSubscriptionsParams struct {
	AccessToken string
	Status      string
	PageSize    int64
}

type ListCustomersParams struct {
	AccessToken string
	PageSize    int64
	// Limit caps the total number of customers returned across pages.
	Limit int64
}
