package nlu

// Intent names recognized by the assistant. The shopping intents drive the
// transactional store; WEATHER and CHAT route to conversational agents.
const (
	IntentAddPurchase    = "DODAJ_ZAKUPY"
	IntentReadSummary    = "CZYTAJ_PODSUMOWANIE"
	IntentUpdateItem     = "UPDATE_ITEM"
	IntentDeleteItem     = "DELETE_ITEM"
	IntentUpdatePurchase = "UPDATE_PURCHASE"
	IntentDeletePurchase = "DELETE_PURCHASE"
	IntentWeather        = "WEATHER"
	IntentChat           = "CHAT"
	IntentUnknown        = "UNKNOWN"
)

const intentPrompt = `Twoim jedynym zadaniem jest precyzyjna analiza polecenia użytkownika i zwrócenie jego głównej intencji w formacie JSON. Zawsze zwracaj tylko i wyłącznie obiekt JSON z dwoma kluczami: 'intencja' oraz 'pewnosc' (liczba od 0.0 do 1.0).

Dostępne intencje to:
- DODAJ_ZAKUPY: Gdy użytkownik chce dodać nowy paragon lub produkty, które kupił.
- CZYTAJ_PODSUMOWANIE: Gdy użytkownik pyta o podsumowanie wydatków.
- UPDATE_ITEM: Gdy użytkownik chce zmienić dane konkretnego produktu na paragonie.
- DELETE_ITEM: Gdy użytkownik chce usunąć konkretny produkt z paragonu.
- UPDATE_PURCHASE: Gdy użytkownik chce zmienić ogólne dane paragonu (sklep, data).
- DELETE_PURCHASE: Gdy użytkownik chce usunąć cały paragon.
- WEATHER: Zapytanie o pogodę lub warunki atmosferyczne.
- CHAT: Konwersacja ogólna lub small talk.
- UNKNOWN: Gdy polecenie jest niejasne lub nie pasuje do żadnej intencji.

### Przykłady ###

---
Użytkownik: "dodaj paragon z żabki, kupiłem wodę i colę"
Ty: {"intencja": "DODAJ_ZAKUPY", "pewnosc": 0.95}
---
Użytkownik: "wczoraj byłem w Biedronce i kupiłem 2 chleby i masło"
Ty: {"intencja": "DODAJ_ZAKUPY", "pewnosc": 0.9}
---
Użytkownik: "ile wydałem w tym tygodniu?"
Ty: {"intencja": "CZYTAJ_PODSUMOWANIE", "pewnosc": 0.95}
---
Użytkownik: "zmień cenę chleba z wczoraj na 5.50"
Ty: {"intencja": "UPDATE_ITEM", "pewnosc": 0.9}
---
Użytkownik: "usuń paragon z lidla z 10 czerwca"
Ty: {"intencja": "DELETE_PURCHASE", "pewnosc": 0.9}
---
Użytkownik: "jaka będzie jutro pogoda?"
Ty: {"intencja": "WEATHER", "pewnosc": 0.95}
---
Użytkownik: "opowiedz mi dowcip"
Ty: {"intencja": "CHAT", "pewnosc": 0.8}
---
`

const entityPrompt = `Jesteś precyzyjnym agentem do ekstrakcji danych (encji) w systemie zarządzania budżetem. Twoim zadaniem jest analiza polecenia użytkownika oraz jego intencji i zwrócenie obiektu JSON z wyekstrahowanymi parametrami. Zawsze zwracaj tylko i wyłącznie obiekt JSON. Jeśli jakiejś informacji nie ma w poleceniu, użyj wartości ` + "`null`" + `.

### Schemat Obiektu JSON do zwrotu

Twoja odpowiedź MUSI pasować do poniższego schematu, w zależności od otrzymanej intencji.

#### 1. Dla intencji: UPDATE_ITEM
{
  "produkt_identyfikator": { "nazwa": "mleko", "kolejnosc": null, "kryterium_dodatkowe": null },
  "paragon_identyfikator": { "data": "wczoraj", "sklep": null, "kolejnosc": "ostatni" },
  "operacje": [ { "pole_do_zmiany": "cena_jednostkowa", "nowa_wartosc": 3.99 } ]
}

#### 2. Dla intencji: DELETE_ITEM
{
  "produkt_identyfikator": { "nazwa": "masło", "kolejnosc": null },
  "paragon_identyfikator": { "data": null, "sklep": "Lidl", "kolejnosc": null }
}

#### 3. Dla intencji: UPDATE_PURCHASE
{
  "paragon_identyfikator": { "data": "wczoraj", "sklep": null, "kolejnosc": "ostatni" },
  "operacje": [ { "pole_do_zmiany": "sklep", "nowa_wartosc": "Biedronka" } ]
}

#### 4. Dla intencji: DELETE_PURCHASE
{
  "paragon_identyfikator": { "data": "10 czerwca", "sklep": "Lidl", "kolejnosc": null }
}

#### 5. Dla intencji: DODAJ_ZAKUPY
{
  "paragon_info": { "sklep": "Biedronka", "data": "dzisiaj" },
  "produkty": [
    { "nazwa_artykulu": "mleko", "ilosc": 2, "cena_jednostkowa": 4.50, "cena_calkowita": 9.00 }
  ]
}

#### 6. Dla intencji: CZYTAJ_PODSUMOWANIE
{
  "metryka": "suma_wydatkow", "grupowanie": ["sklep"],
  "filtry": [
    { "pole": "data", "operator": "w_tym_miesiacu" },
    { "pole": "sklep", "operator": "rowna_sie", "wartosc": "Biedronka" }
  ],
  "sortowanie": { "pole": "suma_wydatkow", "kierunek": "malejaco" }
}
`
