package inventory

// Item ids as reported by the game.
const (
	ItemUnknown                 = 0
	ItemPokeBall                = 1
	ItemGreatBall               = 2
	ItemUltraBall               = 3
	ItemMasterBall              = 4
	ItemPotion                  = 101
	ItemSuperPotion             = 102
	ItemHyperPotion             = 103
	ItemMaxPotion               = 104
	ItemRevive                  = 201
	ItemMaxRevive               = 202
	ItemLuckyEgg                = 301
	ItemIncenseOrdinary         = 401
	ItemIncenseSpicy            = 402
	ItemIncenseCool             = 403
	ItemIncenseFloral           = 404
	ItemTroyDisk                = 501
	ItemXAttack                 = 602
	ItemXDefense                = 603
	ItemXMiracle                = 604
	ItemRazzBerry               = 701
	ItemBlukBerry               = 702
	ItemNanabBerry              = 703
	ItemWeparBerry              = 704
	ItemPinapBerry              = 705
	ItemSpecialCamera           = 801
	ItemIncubatorBasicUnlimited = 901
	ItemIncubatorBasic          = 902
	ItemPokemonStorageUpgrade   = 1001
	ItemItemStorageUpgrade      = 1002
)

// KnownItems lists every item id the snapshot tracks. Stock for ids outside
// this list is ignored on refresh.
var KnownItems = []int{
	ItemPokeBall, ItemGreatBall, ItemUltraBall, ItemMasterBall,
	ItemPotion, ItemSuperPotion, ItemHyperPotion, ItemMaxPotion,
	ItemRevive, ItemMaxRevive,
	ItemLuckyEgg,
	ItemIncenseOrdinary, ItemIncenseSpicy, ItemIncenseCool, ItemIncenseFloral,
	ItemTroyDisk,
	ItemXAttack, ItemXDefense, ItemXMiracle,
	ItemRazzBerry, ItemBlukBerry, ItemNanabBerry, ItemWeparBerry, ItemPinapBerry,
	ItemSpecialCamera,
	ItemIncubatorBasicUnlimited, ItemIncubatorBasic,
	ItemPokemonStorageUpgrade, ItemItemStorageUpgrade,
}

// Item groups used by the farming-mode evaluation.
var (
	CaptureDevices = []int{ItemPokeBall, ItemGreatBall, ItemUltraBall, ItemMasterBall}
	Potions        = []int{ItemPotion, ItemSuperPotion, ItemHyperPotion, ItemMaxPotion}
	Revives        = []int{ItemRevive, ItemMaxRevive}
)
