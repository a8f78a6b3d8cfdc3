// Package weekimage рисует недельный календарь владельца в PNG
package weekimage

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/Freeeeeet/booking_engine/internal/controller/formatting"
)

// Kind что занимает интервал на картинке
type Kind int

const (
	KindFree Kind = iota
	KindBooked
	KindBlocked
)

// Item один прямоугольник в колонке дня
type Item struct {
	Start time.Time
	End   time.Time
	Kind  Kind
	Label string
}

// Week данные для отрисовки. Start приводится к понедельнику в Location.
type Week struct {
	Start    time.Time
	Location *time.Location
	Now      time.Time
	Items    []Item
}

// Размеры и отступы
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minItemHeight    = 8.0
	itemBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPadding      = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
	maxLabelRunes    = 18
)

// Размеры шрифтов
const (
	titleFontSize  = 25.0
	dayFontSize    = 27.0
	hourFontSize   = 18.0
	itemFontSize   = 17.0
	legendFontSize = 12.0
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 90}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{225, 225, 225, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	freeColor        = color.RGBA{133, 193, 85, 220}
	bookedColor      = color.RGBA{255, 182, 193, 255}
	blockedColor     = color.RGBA{158, 158, 158, 200}
	itemTextColor    = color.RGBA{20, 24, 28, 230}
	bookedTextColor  = color.RGBA{120, 40, 50, 255}
	itemShadowColor  = color.RGBA{0, 0, 0, 20}
	legendLabelColor = color.RGBA{70, 74, 78, 220}
)

var months = [...]string{
	time.January:   "Январь",
	time.February:  "Февраль",
	time.March:     "Март",
	time.April:     "Апрель",
	time.May:       "Май",
	time.June:      "Июнь",
	time.July:      "Июль",
	time.August:    "Август",
	time.September: "Сентябрь",
	time.October:   "Октябрь",
	time.November:  "Ноябрь",
	time.December:  "Декабрь",
}

var (
	fontsOnce    sync.Once
	regularFont  *opentype.Font
	boldFont     *opentype.Font
	fontsLoadErr error
)

func loadFonts() {
	regularFont, fontsLoadErr = opentype.Parse(goregular.TTF)
	if fontsLoadErr != nil {
		return
	}
	boldFont, fontsLoadErr = opentype.Parse(gobold.TTF)
}

// setFont выставляет шрифт нужного размера; basicfont если TTF не разобрался
func setFont(dc *gg.Context, size float64, bold bool) {
	fontsOnce.Do(loadFonts)

	f := regularFont
	if bold {
		f = boldFont
	}
	if fontsLoadErr != nil || f == nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}
	dc.SetFontFace(face)
}

type hourRange struct {
	start int
	end   int
	total int
}

type layout struct {
	dayWidth   int
	dayHeight  int
	cellHeight float64
	hours      hourRange
}

// Render рисует неделю и возвращает PNG
func Render(w Week) ([]byte, error) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	monday := WeekStart(w.Start, loc)
	items := itemsByDay(w.Items, monday, loc)
	hours := calculateHourRange(w.Items, loc)

	l := layout{
		dayWidth:  (imageWidth - leftLabelsWidth - legendWidth) / daysInWeek,
		dayHeight: imageHeight - headerHeight,
		hours:     hours,
	}
	l.cellHeight = float64(l.dayHeight) / float64(hours.total)

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	now := w.Now.In(loc)
	todayIndex := dayIndex(now, monday)

	drawHeader(dc, monday)
	drawHourLabels(dc, l)
	for day := 0; day < daysInWeek; day++ {
		x := float64(leftLabelsWidth + day*l.dayWidth)
		drawDay(dc, monday.AddDate(0, 0, day), x, day, day == todayIndex, l)
		for _, item := range items[day] {
			drawItem(dc, item, x, l, loc)
		}
	}
	if todayIndex >= 0 {
		drawCurrentTimeLine(dc, now, l)
	}
	drawLegend(dc, l)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode week image: %w", err)
	}
	return buf.Bytes(), nil
}

// WeekStart полночь понедельника недели, в которую попадает t
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	sinceMonday := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-sinceMonday, 0, 0, 0, 0, loc)
}

// dayIndex номер дня недели 0..6 или -1 если t вне недели
func dayIndex(t, monday time.Time) int {
	for i := 0; i < daysInWeek; i++ {
		d := monday.AddDate(0, 0, i)
		if t.Year() == d.Year() && t.YearDay() == d.YearDay() {
			return i
		}
	}
	return -1
}

func itemsByDay(items []Item, monday time.Time, loc *time.Location) map[int][]Item {
	byDay := make(map[int][]Item, daysInWeek)
	for _, item := range items {
		idx := dayIndex(item.Start.In(loc), monday)
		if idx < 0 {
			continue
		}
		byDay[idx] = append(byDay[idx], item)
	}
	return byDay
}

func calculateHourRange(items []Item, loc *time.Location) hourRange {
	minHour, maxHour := 24, 0
	for _, item := range items {
		start := item.Start.In(loc)
		end := item.End.In(loc)

		startH := start.Hour()
		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		if end.YearDay() != start.YearDay() {
			endH = 24
		}
		minHour = min(minHour, startH)
		maxHour = max(maxHour, endH)
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(minHour-hourPadding, 0)
	end := min(maxHour+hourPadding, 24)
	return hourRange{start: start, end: end, total: end - start}
}

func drawHeader(dc *gg.Context, monday time.Time) {
	sunday := monday.AddDate(0, 0, daysInWeek-1)

	title := fmt.Sprintf("%s %d", months[monday.Month()], monday.Year())
	if sunday.Month() != monday.Month() {
		title = fmt.Sprintf("%s - %s %d", months[monday.Month()], months[sunday.Month()], sunday.Year())
	}

	setFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, l layout) {
	setFont(dc, hourFontSize, false)
	dc.SetColor(hourLabelColor)

	for i := 0; i < l.hours.total; i++ {
		y := float64(headerHeight) + float64(i)*l.cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", l.hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDay(dc *gg.Context, date time.Time, x float64, idx int, today bool, l layout) {
	y := float64(headerHeight)

	switch {
	case today:
		dc.SetColor(todayBgColor)
	case idx%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(l.dayWidth), float64(l.dayHeight))
	dc.Fill()

	setFont(dc, dayFontSize, true)
	dc.SetColor(textColor)
	center := x + float64(l.dayWidth)/2
	dc.DrawStringAnchored(date.Format("02.01"), center, y, 0.5, -1)
	dc.DrawStringAnchored(formatting.WeekdayShort(date.Weekday()), center, y, 0.5, -0.2)

	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= l.hours.total; i++ {
		hy := y + float64(i)*l.cellHeight
		dc.DrawLine(x, hy, x+float64(l.dayWidth), hy)
		dc.Stroke()
	}
}

func hourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

func drawItem(dc *gg.Context, item Item, x float64, l layout, loc *time.Location) {
	start := item.Start.In(loc)
	end := item.End.In(loc)

	startHour := hourOf(start)
	endHour := hourOf(end)
	if end.YearDay() != start.YearDay() {
		endHour = 24
	}

	top := float64(headerHeight) + (startHour-float64(l.hours.start))*l.cellHeight
	height := (endHour - startHour) * l.cellHeight
	if height < minItemHeight {
		height = minItemHeight
	}

	fill := colorOf(item.Kind)
	left := x + dayPaddingX
	width := float64(l.dayWidth) - dayPaddingX*2

	dc.SetColor(itemShadowColor)
	dc.DrawRoundedRectangle(left+shadowOffset, top+2+shadowOffset, width, height-4, itemBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(left, top+2, width, height-4, itemBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(left, top+2, width, height-4, itemBorderRadius)
	dc.Stroke()

	txtColor := itemTextColor
	if item.Kind == KindBooked {
		txtColor = bookedTextColor
	}

	setFont(dc, itemFontSize, false)
	dc.SetColor(txtColor)
	txtX := left + 8
	txtY := top + 18
	dc.DrawStringAnchored(start.Format("15:04"), txtX, txtY, 0, 0)

	if item.Label != "" && height > 25 {
		setFont(dc, itemFontSize-2, false)
		dc.DrawStringAnchored(truncate(item.Label, maxLabelRunes), txtX, txtY+16, 0, 0)
	}
}

// truncate обрезает строку по символам, а не байтам
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func colorOf(k Kind) color.RGBA {
	switch k {
	case KindBooked:
		return bookedColor
	case KindBlocked:
		return blockedColor
	default:
		return freeColor
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, l layout) {
	h := hourOf(now)
	if h < float64(l.hours.start) || h > float64(l.hours.end) {
		return
	}

	y := float64(headerHeight) + (h-float64(l.hours.start))*l.cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+daysInWeek*l.dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, l layout) {
	legend := []struct {
		label string
		clr   color.Color
	}{
		{"Свободно", freeColor},
		{"Занято", bookedColor},
		{"Закрыто", blockedColor},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(leftLabelsWidth + daysInWeek*l.dayWidth + 10)
	y := float64(imageHeight) - 78.0

	setFont(dc, legendFontSize, false)
	for _, item := range legend {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendLabelColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2+1, 0, 0.2)
		y += boxH + 14
	}
}
