package core

// TransferCategoryID is the category both legs of a wallet transfer are
// booked under.
const TransferCategoryID = "transfer"

// DefaultCategories seeds a fresh data set.
func DefaultCategories() []Category {
	return []Category{
		{ID: "food", Name: "Food", Icon: "restaurant", Type: Expense},
		{ID: "transport", Name: "Transport", Icon: "car", Type: Expense},
		{ID: "services", Name: "Services", Icon: "flash", Type: Expense},
		{ID: "housing", Name: "Housing", Icon: "home", Type: Expense},
		{ID: "health", Name: "Health", Icon: "medkit", Type: Expense},
		{ID: "leisure", Name: "Leisure", Icon: "game-controller", Type: Expense},
		{ID: "savings", Name: "Savings", Icon: "wallet", Type: Expense},
		{ID: "salary", Name: "Salary", Icon: "cash", Type: Income},
		{ID: "freelance", Name: "Freelance", Icon: "briefcase", Type: Income},
		{ID: TransferCategoryID, Name: "Transfer", Icon: "swap-horizontal", Type: Expense},
	}
}
