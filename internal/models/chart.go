package models

// ChartData represents one Plotly series
type ChartData struct {
	Type string      `json:"type"` // bar, line, scatter
	X    interface{} `json:"x"`
	Y    interface{} `json:"y"`
	Name string      `json:"name"`
	Mode string      `json:"mode,omitempty"` // for scatter: lines, markers, lines+markers
	Line *ChartLine  `json:"line,omitempty"`
}

// ChartLine styles a line series
type ChartLine struct {
	Dash  string `json:"dash,omitempty"`
	Color string `json:"color,omitempty"`
}

// ChartResponse wraps chart data with layout options
type ChartResponse struct {
	Data   []ChartData `json:"data"`
	Layout ChartLayout `json:"layout,omitempty"`
}

// ChartLayout defines Plotly layout options
type ChartLayout struct {
	Title      string `json:"title,omitempty"`
	XAxisTitle string `json:"xaxis_title,omitempty"`
	YAxisTitle string `json:"yaxis_title,omitempty"`
	ShowLegend bool   `json:"showlegend,omitempty"`
}
