package line

import "github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

const (
	// OpenFormPostbackData is sent by the registration rich menu when the
	// user asks for the form.
	OpenFormPostbackData = "action=open_form"

	richMenuWidth  = 2500
	richMenuHeight = 1686
)

type RichMenu = messaging_api.RichMenuRequest

// RegistrationRichMenu is a single full-size tap area that posts back
// OpenFormPostbackData.
func RegistrationRichMenu() RichMenu {
	return RichMenu{
		Size: &messaging_api.RichMenuSize{
			Width:  richMenuWidth,
			Height: richMenuHeight,
		},
		Selected:    false,
		Name:        "LINE公式登録メニュー",
		ChatBarText: "登録フォーム",
		Areas: []messaging_api.RichMenuArea{
			{
				Bounds: &messaging_api.RichMenuBounds{X: 0, Y: 0, Width: richMenuWidth, Height: richMenuHeight},
				Action: NewPostbackAction("登録フォーム", OpenFormPostbackData, "登録フォームを開く"),
			},
		},
	}
}
