package line

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Postback actions understood by the webhook. The payload format is a plain
// query string, e.g. "action=confirm&scheduleId=123".
const (
	ActionConfirm    = "confirm"
	ActionReschedule = "reschedule"

	postbackActionKey  = "action"
	postbackBookingKey = "scheduleId"
)

// PostbackData encodes a guardian action for one booking.
func PostbackData(action string, bookingID int64) string {
	v := url.Values{}
	v.Set(postbackActionKey, action)
	v.Set(postbackBookingKey, strconv.FormatInt(bookingID, 10))
	return v.Encode()
}

// ParsePostback extracts the action and booking id from a postback payload.
// A missing action or a missing/non-numeric booking id is an error; the
// caller skips that single event.
func ParsePostback(data string) (string, int64, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return "", 0, fmt.Errorf("malformed postback payload: %w", err)
	}
	action := values.Get(postbackActionKey)
	if action == "" {
		return "", 0, fmt.Errorf("postback payload missing action")
	}
	raw := values.Get(postbackBookingKey)
	if raw == "" {
		return "", 0, fmt.Errorf("postback payload missing %s", postbackBookingKey)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("postback %s is not numeric: %w", postbackBookingKey, err)
	}
	return action, id, nil
}

// ReminderCard carries the display fields of one class reminder.
type ReminderCard struct {
	BookingID   int64
	StudentName string
	CourseTitle string
	Date        string
	TimeRange   string
	Room        string
	TeacherName string
}

// AltText is shown in chat lists and on clients without flex support.
func (c ReminderCard) AltText() string {
	return fmt.Sprintf("Class reminder: %s on %s %s", c.CourseTitle, c.Date, c.TimeRange)
}

func reminderBubble(card ReminderCard) *linebot.BubbleContainer {
	return &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Header: &linebot.BoxComponent{
			Type:   linebot.FlexComponentTypeBox,
			Layout: linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "Upcoming Class",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeLg,
					Color:  "#1E6FD9",
				},
			},
		},
		Body: &linebot.BoxComponent{
			Type:    linebot.FlexComponentTypeBox,
			Layout:  linebot.FlexBoxLayoutTypeVertical,
			Spacing: linebot.FlexComponentSpacingTypeSm,
			Contents: []linebot.FlexComponent{
				detailLine("Student", card.StudentName),
				detailLine("Course", card.CourseTitle),
				detailLine("Date", card.Date),
				detailLine("Time", card.TimeRange),
				detailLine("Room", card.Room),
				detailLine("Teacher", card.TeacherName),
			},
		},
		Footer: &linebot.BoxComponent{
			Type:    linebot.FlexComponentTypeBox,
			Layout:  linebot.FlexBoxLayoutTypeVertical,
			Spacing: linebot.FlexComponentSpacingTypeSm,
			Contents: []linebot.FlexComponent{
				&linebot.ButtonComponent{
					Type:  linebot.FlexComponentTypeButton,
					Style: linebot.FlexButtonStyleTypePrimary,
					Action: linebot.NewPostbackAction(
						"Confirm attendance",
						PostbackData(ActionConfirm, card.BookingID),
						"",
						"Confirm attendance",
					),
				},
				&linebot.ButtonComponent{
					Type:  linebot.FlexComponentTypeButton,
					Style: linebot.FlexButtonStyleTypeSecondary,
					Action: linebot.NewPostbackAction(
						"Request reschedule",
						PostbackData(ActionReschedule, card.BookingID),
						"",
						"Request reschedule",
					),
				},
			},
		},
	}
}

func detailLine(label, value string) *linebot.BoxComponent {
	return &linebot.BoxComponent{
		Type:   linebot.FlexComponentTypeBox,
		Layout: linebot.FlexBoxLayoutTypeBaseline,
		Contents: []linebot.FlexComponent{
			&linebot.TextComponent{
				Type:  linebot.FlexComponentTypeText,
				Text:  label,
				Size:  linebot.FlexTextSizeTypeSm,
				Color: "#8C8C8C",
			},
			&linebot.TextComponent{
				Type: linebot.FlexComponentTypeText,
				Text: value,
				Size: linebot.FlexTextSizeTypeSm,
				Wrap: true,
			},
		},
	}
}
