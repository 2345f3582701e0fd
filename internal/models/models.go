package models

type ViewResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
	Categories []string   `json:"categories"`
	Selected   string     `json:"selected,omitempty"`
	Table      *TableView `json:"table,omitempty"`
	Chart      *ChartView `json:"chart,omitempty"`
}

type TableView struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

type TableRow struct {
	Rank    int     `json:"rank"`
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type ChartView struct {
	Title  string     `json:"title"`
	XLabel string     `json:"x_label"`
	YLabel string     `json:"y_label"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Bars   []ChartBar `json:"bars"`
}

type ChartBar struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Label   string  `json:"label"`
	Tooltip string  `json:"tooltip"`
	Color   string  `json:"color"`
}

type SelectRequest struct {
	Category string `json:"category" form:"category"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
